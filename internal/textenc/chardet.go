package textenc

import "github.com/saintfish/chardet"

// Chardet is a Detector backed by a confidence-scored statistical detector.
// Guesses below MinConfidence are ignored.
type Chardet struct {
	det           *chardet.Detector
	MinConfidence int
}

func NewChardet() *Chardet {
	return &Chardet{det: chardet.NewTextDetector(), MinConfidence: 10}
}

func (c *Chardet) Detect(raw []byte) (string, int, bool) {
	res, err := c.det.DetectBest(raw)
	if err != nil || res == nil {
		return "", 0, false
	}
	if res.Confidence < c.MinConfidence {
		return res.Charset, res.Confidence, false
	}
	return res.Charset, res.Confidence, true
}
