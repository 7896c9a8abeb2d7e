package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrConfigMissing      = errors.New("configuration missing")
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrBackendRejected    = errors.New("backend rejected request")
	ErrMalformedResponse  = errors.New("malformed backend response")
	ErrJobFailed          = errors.New("job failed")
	ErrPollTimeout        = errors.New("generation timeout")
	ErrAssetFetchFailed   = errors.New("asset fetch failed")
	ErrJobNotFound        = errors.New("job not found")
	ErrNotConfigured      = errors.New("backend not configured")
	ErrInvalidRequest     = errors.New("invalid request")
)

// UserMessage renders err as the human readable text placed in error events.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPollTimeout):
		return "Generation timeout: the backend did not finish in time"
	case errors.Is(err, context.Canceled):
		return "Generation cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation deadline exceeded"
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Generation failed"
	}
	return msg
}
