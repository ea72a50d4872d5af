// Package reminder turns a customer's phone number and balance into a
// payment-reminder deep link for the SMS composer or WhatsApp.
//
// Building a link is pure. Opening it is left to an Opener supplied by the
// host platform.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	ErrLinkUnavailable = errors.New("no app available to open the reminder")
	ErrInvalidPhone    = errors.New("phone number has no digits")
	ErrUnknownChannel  = errors.New("unknown reminder channel")
)

// Channel is the messaging app a reminder goes to.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// ParseChannel maps user input to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelSMS:
		return ChannelSMS, nil
	case ChannelWhatsApp, "wa":
		return ChannelWhatsApp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Platform is the OS the link will be opened on.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformOther   Platform = "other"
)

// ParsePlatform maps user input to a Platform; anything unrecognised is
// PlatformOther.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformIOS:
		return PlatformIOS
	case PlatformAndroid:
		return PlatformAndroid
	default:
		return PlatformOther
	}
}

// Template fills in the reminder text. The zero value uses the defaults.
type Template struct {
	// CountryCode replaces a leading 0 in local numbers, e.g. "27".
	CountryCode string
	// Currency is prefixed to the balance, e.g. "R".
	Currency string
	// Venue is named in the message.
	Venue string
}

const (
	defaultCountryCode = "27"
	defaultCurrency    = "R"
	defaultVenue       = "KaThuli's Tavern"

	whatsappAppBase = "whatsapp://send"
	whatsappWebBase = "https://wa.me/"
)

func (t Template) withDefaults() Template {
	if t.CountryCode == "" {
		t.CountryCode = defaultCountryCode
	}
	if t.Currency == "" {
		t.Currency = defaultCurrency
	}
	if t.Venue == "" {
		t.Venue = defaultVenue
	}
	return t
}

// Message renders the reminder text for balance.
func (t Template) Message(balance decimal.Decimal) string {
	t = t.withDefaults()
	return fmt.Sprintf("Hello! Please clear your payment of %s%s at %s. Thank you!",
		t.Currency, balance.StringFixed(2), t.Venue)
}

// Normalize reduces phone to international digits: separators and a leading
// "+" are dropped and a single leading 0 becomes the country code.
func (t Template) Normalize(phone string) (string, error) {
	t = t.withDefaults()
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	trimmed := strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(trimmed, "+"):
		return digits, nil
	case strings.HasPrefix(digits, "00"):
		return digits[2:], nil
	case strings.HasPrefix(digits, "0"):
		return t.CountryCode + digits[1:], nil
	default:
		return digits, nil
	}
}

// BuildLink returns the deep link for sending the reminder over channel on
// platform. WhatsApp uses the app scheme on iOS and Android and the web link
// everywhere else.
func (t Template) BuildLink(phone string, balance decimal.Decimal, channel Channel, platform Platform) (string, error) {
	number, err := t.Normalize(phone)
	if err != nil {
		return "", err
	}
	text := encode(t.Message(balance))

	switch channel {
	case ChannelSMS:
		return smsLink(number, text, platform), nil
	case ChannelWhatsApp:
		if platform == PlatformIOS || platform == PlatformAndroid {
			return whatsappAppLink(number, text), nil
		}
		return whatsappWebLink(number, text), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

// BuildLink uses the default template.
func BuildLink(phone string, balance decimal.Decimal, channel Channel, platform Platform) (string, error) {
	return Template{}.BuildLink(phone, balance, channel, platform)
}

func smsLink(number, text string, platform Platform) string {
	// iOS Messages only reads the body after "&".
	sep := "?"
	if platform == PlatformIOS {
		sep = "&"
	}
	return "sms:+" + number + sep + "body=" + text
}

func whatsappAppLink(number, text string) string {
	return whatsappAppBase + "?phone=" + number + "&text=" + text
}

func whatsappWebLink(number, text string) string {
	return whatsappWebBase + number + "?text=" + text
}

// encode percent-encodes s for a query value, spaces as %20.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Opener hands a link to the operating system.
type Opener interface {
	Open(ctx context.Context, link string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, link string) error

func (f OpenerFunc) Open(ctx context.Context, link string) error { return f(ctx, link) }

// Request describes one reminder to send.
type Request struct {
	Phone    string
	Balance  decimal.Decimal
	Channel  Channel
	Platform Platform
}

// Dispatch builds the link for req and opens it. When the WhatsApp app link
// cannot be opened the web link is tried once. It returns the link that was
// opened, or ErrLinkUnavailable.
func (t Template) Dispatch(ctx context.Context, opener Opener, req Request) (string, error) {
	link, err := t.BuildLink(req.Phone, req.Balance, req.Channel, req.Platform)
	if err != nil {
		return "", err
	}
	openErr := opener.Open(ctx, link)
	if openErr == nil {
		return link, nil
	}

	if req.Channel == ChannelWhatsApp && strings.HasPrefix(link, whatsappAppBase) {
		number, _ := t.Normalize(req.Phone)
		web := whatsappWebLink(number, encode(t.Message(req.Balance)))
		if err := opener.Open(ctx, web); err == nil {
			return web, nil
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrLinkUnavailable, req.Channel, openErr)
}
