// Package scanning turns photographed or scanned receipts into plain text.
// It does not interpret the text; that is the job of the extraction package.
package scanning

import (
	"context"
	"errors"
)

// ErrNoText is returned when a recognizer answers without any text parts.
var ErrNoText = errors.New("recognizer returned no text")

// Recognizer reads the text printed on a receipt image or PDF. The language is
// fixed to English.
type Recognizer interface {
	// RecognizeText returns the receipt's text, one printed line per line
	RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases the recognizer's resources
	Close() error
}

// transcriptionPrompt is shared by every vision model backed recognizer
const transcriptionPrompt = `You are reading a photographed or scanned shopping receipt written in English.

Transcribe every piece of printed text exactly as it appears, top to bottom:
- Keep one printed line per output line, in the original order.
- Keep prices, dates, phone numbers and symbols such as "$" exactly as printed.
- Do not summarize, translate, correct spelling, or add totals.
- Do not add any commentary before or after the text.
- Do not use markdown code blocks.

If the image contains no legible text, reply with an empty message.`
