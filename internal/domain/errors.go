package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                          = errors.New("not found")
	ErrInvalidInput                      = errors.New("invalid input")
	ErrUnsupportedCity                   = errors.New("unsupported city")
	ErrBackendInvocationFailed           = errors.New("backend invocation failed")
	ErrScrapeRunFailed                   = errors.New("scrape run failed")
	ErrScrapeTimeout                     = errors.New("scrape timeout")
	ErrAllSourcesFailed                  = errors.New("all property sources failed")
	ErrAllTranslationServicesUnavailable = errors.New("all translation services unavailable")
	ErrTranscriptionFailed               = errors.New("transcription failed")
)

// ScrapeRunError reports a run that reached a terminal state other than SUCCEEDED.
type ScrapeRunError struct {
	Status RunStatus
	RunID  string
}

func (e *ScrapeRunError) Error() string {
	return fmt.Sprintf("actor run %s finished with status %s", e.RunID, e.Status)
}

func (e *ScrapeRunError) Is(target error) bool { return target == ErrScrapeRunFailed }

// ScrapeTimeoutError reports a poll loop that ran out of iterations.
type ScrapeTimeoutError struct {
	RunID string
	Polls int
}

func (e *ScrapeTimeoutError) Error() string {
	return fmt.Sprintf("actor run %s taking too long (exceeded %d polls)", e.RunID, e.Polls)
}

func (e *ScrapeTimeoutError) Is(target error) bool { return target == ErrScrapeTimeout }
