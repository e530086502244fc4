package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("storage: not configured")

// ObjectStore stores a blob under key and returns its public URL.
type ObjectStore interface {
	Configured() bool
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Unconfigured is used when no bucket credentials are present. Every Put fails
// with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrNotConfigured
}

const recordingsFolder = "recordings"

// RecordingKey builds recordings/<deviceId>/<callId>-<uuid><ext>. The random
// suffix keeps re-uploads of the same call from overwriting each other.
func RecordingKey(deviceID, callID, fileName, contentType string) string {
	return fmt.Sprintf("%s/%s/%s-%s%s",
		recordingsFolder,
		safeSegment(deviceID),
		safeSegment(callID),
		uuid.NewString(),
		recordingExt(fileName, contentType),
	)
}

func recordingExt(fileName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" && len(ext) <= 6 && isAlnum(ext[1:]) {
		return ext
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i != -1 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "audio/mp4", "audio/x-m4a", "audio/m4a", "audio/aac":
		return ".m4a"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/amr":
		return ".amr"
	case "audio/3gpp":
		return ".3gp"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ""
	}
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// safeSegment keeps object keys to one path segment per id.
func safeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, s)
}
