package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

const bom = "\ufeff"

// Result is the outcome of decoding raw bytes. Lossy is set when no codec
// produced plausible text and invalid UTF-8 sequences were dropped.
type Result struct {
	Text    string
	Charset string
	Lossy   bool
}

// Detector guesses the charset of raw bytes.
type Detector interface {
	Detect(raw []byte) (charset string, confidence int, ok bool)
}

// Attempt is a single strict decode. Decode reports false when raw is not
// valid in the attempted charset.
type Attempt struct {
	Name   string
	Decode func(raw []byte) (string, bool)
}

// FallbackAttempts is the ordered codec list tried when detection is not
// available or not conclusive.
func FallbackAttempts() []Attempt {
	return []Attempt{
		{Name: "utf-8", Decode: decodeUTF8},
		{Name: "windows-1251", Decode: strictCharmap(charmap.Windows1251)},
		{Name: "koi8-r", Decode: strictCharmap(charmap.KOI8R)},
		{Name: "cp866", Decode: strictCharmap(charmap.CodePage866)},
		{Name: "iso-8859-5", Decode: strictCharmap(charmap.ISO8859_5)},
	}
}

type Decoder struct {
	detector Detector
	attempts []Attempt
	log      zerolog.Logger
}

// New returns a Decoder. A nil detector disables detection and the
// fallback list is used directly.
func New(detector Detector, log zerolog.Logger) *Decoder {
	return &Decoder{
		detector: detector,
		attempts: FallbackAttempts(),
		log:      log,
	}
}

// Decode turns raw bytes into text. It never fails: the worst case is a
// lossy UTF-8 rendition.
func (d *Decoder) Decode(raw []byte, pathHint string) Result {
	if len(raw) == 0 {
		return Result{Charset: "utf-8"}
	}

	if d.detector != nil {
		if res, ok := d.detected(raw, pathHint); ok {
			return res
		}
	}

	for _, a := range d.attempts {
		text, ok := a.Decode(raw)
		if !ok {
			continue
		}
		text = strings.TrimPrefix(text, bom)
		if !LooksLikeText(text) {
			d.log.Debug().Str("path", pathHint).Str("charset", a.Name).Msg("decoded text rejected by heuristic")
			continue
		}
		return Result{Text: text, Charset: a.Name}
	}

	d.log.Warn().Str("path", pathHint).Int("bytes", len(raw)).Msg("no codec produced readable text, decoding utf-8 lossy")
	text := strings.TrimPrefix(strings.ToValidUTF8(string(raw), ""), bom)
	return Result{Text: text, Charset: "utf-8", Lossy: true}
}

func (d *Decoder) detected(raw []byte, pathHint string) (Result, bool) {
	name, confidence, ok := d.detector.Detect(raw)
	if !ok || name == "" {
		return Result{}, false
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		d.log.Debug().Str("path", pathHint).Str("charset", name).Msg("detected charset has no codec")
		return Result{}, false
	}
	var text string
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		text, ok = decodeUTF8(raw)
	} else {
		text, ok = decodeWith(enc, raw)
	}
	if !ok {
		return Result{}, false
	}
	text = strings.TrimPrefix(text, bom)
	if !LooksLikeText(text) {
		d.log.Debug().Str("path", pathHint).Str("charset", name).Int("confidence", confidence).Msg("detected charset rejected by heuristic")
		return Result{}, false
	}
	return Result{Text: text, Charset: strings.ToLower(name)}, true
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func strictCharmap(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(raw []byte) (string, bool) {
		return decodeWith(cm, raw)
	}
}

// decodeWith treats bytes a single-byte codec cannot map as a failure.
func decodeWith(enc encoding.Encoding, raw []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
