package handlers

import (
	"farah_app_echo/internal/checkout"
	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

// Asset is a widget script or stylesheet to emit in the page head
type Asset struct {
	URL        string
	Stylesheet bool
}

// CheckoutPageData is rendered by checkout.html
type CheckoutPageData struct {
	Lang     string
	Dir      string
	Title    string
	Msgs     checkout.Messages
	Booking  *models.Booking
	Widget   *services.WidgetConfig
	Assets   []Asset
	State    string
	Amount   string
	Currency string
}

// StatusPageData is rendered by payment_status.html
type StatusPageData struct {
	Lang string
	Dir  string
	Msgs checkout.Messages
	View checkout.StatusView
}
