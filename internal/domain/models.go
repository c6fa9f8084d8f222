package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type DiagramKind string

const (
	DiagramFlowchart DiagramKind = "flowchart"
	DiagramGraph     DiagramKind = "graph"
	DiagramDrawing   DiagramKind = "drawing"
)

type Diagram struct {
	Type       DiagramKind `json:"type"`
	SVGContent string      `json:"svgContent"`
}

// Caption is the human readable label shown under a rendered diagram.
func (d Diagram) Caption() string {
	kind := strings.TrimSpace(string(d.Type))
	if kind == "" {
		return "Diagram"
	}
	first, size := utf8.DecodeRuneInString(kind)
	return string(unicode.ToUpper(first)) + kind[size:]
}

type ExtractedContent struct {
	Text      []string  `json:"text"`
	Equations []string  `json:"equations"`
	Diagrams  []Diagram `json:"diagrams"`
}

func (c ExtractedContent) Empty() bool {
	return len(c.Text) == 0 && len(c.Equations) == 0 && len(c.Diagrams) == 0
}

const DefaultSlideFilename = "presentation.pptx"

type SlideReference struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const (
	MessageExtracting     = "Extracting content..."
	MessageExtractFailed  = "Failed to extract content. Please try again."
	MessageGenerating     = "Generating slides..."
	MessageGenerateFailed = "Failed to generate slides. Please try again."
)

type Status int

const (
	StatusIdle Status = iota
	StatusProcessing
	StatusSuccess
	StatusError
)

var statusNames = [...]string{"idle", "processing", "success", "error"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// ProcessingStatus carries a message only while processing or after an error.
// Build values with Idle, Processing, Succeeded and Failed.
type ProcessingStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

func Idle() ProcessingStatus { return ProcessingStatus{Status: StatusIdle} }

func Processing(message string) ProcessingStatus {
	return ProcessingStatus{Status: StatusProcessing, Message: message}
}

func Succeeded() ProcessingStatus { return ProcessingStatus{Status: StatusSuccess} }

func Failed(message string) ProcessingStatus {
	return ProcessingStatus{Status: StatusError, Message: message}
}

func (p ProcessingStatus) IsProcessing() bool { return p.Status == StatusProcessing }
