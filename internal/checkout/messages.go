package checkout

import (
	"golang.org/x/text/language"
)

// Message keys used by the checkout and status templates
const (
	MsgVerifyingTitle = "verifying_title"
	MsgVerifyingBody  = "verifying_body"
	MsgSuccessTitle   = "success_title"
	MsgSuccessBody    = "success_body"
	MsgFailedTitle    = "failed_title"
	MsgFailedBody     = "failed_body"
	MsgCheckoutTitle  = "checkout_title"
	MsgAmountLabel    = "amount_label"
	MsgBackToBookings = "back_to_bookings"
)

var supported = []language.Tag{
	language.Arabic,
	language.English,
}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[string]string{
	language.Arabic: {
		MsgVerifyingTitle: "جارٍ التحقق من الدفع",
		MsgVerifyingBody:  "يرجى الانتظار، نتحقق من عملية الدفع.",
		MsgSuccessTitle:   "تم الدفع بنجاح",
		MsgSuccessBody:    "تم تأكيد حجزك وسيتم إشعار المزود.",
		MsgFailedTitle:    "فشل الدفع",
		MsgFailedBody:     "تعذر التحقق من عملية الدفع. يرجى المحاولة مرة أخرى.",
		MsgCheckoutTitle:  "إتمام الدفع",
		MsgAmountLabel:    "المبلغ",
		MsgBackToBookings: "العودة إلى حجوزاتي",
	},
	language.English: {
		MsgVerifyingTitle: "Verifying payment",
		MsgVerifyingBody:  "Please wait while we confirm your payment.",
		MsgSuccessTitle:   "Payment successful",
		MsgSuccessBody:    "Your booking is confirmed and the provider will be notified.",
		MsgFailedTitle:    "Payment failed",
		MsgFailedBody:     "We could not verify your payment. Please try again.",
		MsgCheckoutTitle:  "Complete payment",
		MsgAmountLabel:    "Amount",
		MsgBackToBookings: "Back to my bookings",
	},
}

// Messages is the string table for one language
type Messages struct {
	Tag language.Tag
	m   map[string]string
}

// MessagesFor picks Arabic or English from an Accept-Language header or a
// lang query value. Arabic is the default.
func MessagesFor(preferences ...string) Messages {
	var tags []language.Tag
	for _, p := range preferences {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}

	// a guess (Low) or no match at all falls back to Arabic
	_, idx, conf := matcher.Match(tags...)
	if conf <= language.Low {
		idx = 0
	}
	tag := supported[idx]
	return Messages{Tag: tag, m: catalog[tag]}
}

// Get returns the string for key, or the key itself when it is unknown
func (m Messages) Get(key string) string {
	if v, ok := m.m[key]; ok {
		return v
	}
	return key
}

// Dir is the text direction for the html dir attribute
func (m Messages) Dir() string {
	if m.Tag == language.Arabic {
		return "rtl"
	}
	return "ltr"
}

// Lang is the BCP 47 code for the html lang attribute
func (m Messages) Lang() string {
	return m.Tag.String()
}
