package email

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"gymdesk/internal/domain/billing"
)

// Raw HTML in markdown input is escaped because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Receipt is what a member is told after money changes hands.
type Receipt struct {
	MemberName string    `json:"member_name"`
	RollNumber string    `json:"roll_number"`
	Kind       string    `json:"kind"`   // payment or renewal
	Amount     int64     `json:"amount"` // minor units
	Remaining  int64     `json:"remaining"`
	ExpiryDate string    `json:"expiry_date,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Subject returns the email subject line.
func (r Receipt) Subject() string {
	return fmt.Sprintf("Your %s receipt (%s)", r.Kind, r.RollNumber)
}

// Markdown renders the receipt body as markdown.
func (r Receipt) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Thanks, %s\n\n", escapeMarkdown(r.MemberName))
	fmt.Fprintf(&b, "We received **%s** for membership **%s** on %s.\n\n",
		billing.FormatAmount(r.Amount), r.RollNumber, r.RecordedAt.Format("2 Jan 2006"))
	fmt.Fprintf(&b, "- Outstanding balance: %s\n", billing.FormatAmount(r.Remaining))
	if r.ExpiryDate != "" {
		fmt.Fprintf(&b, "- Membership valid until: %s\n", r.ExpiryDate)
	}
	return b.String()
}

// HTML renders the receipt markdown to HTML.
func (r Receipt) HTML() (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

// Request renders the receipt as a Message for to.
func (r Receipt) Request(to string) (Message, error) {
	html, err := r.HTML()
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: r.Subject(), HTML: html}, nil
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`, "#", `\#`, "[", `\[`, "]", `\]`).Replace(s)
}
