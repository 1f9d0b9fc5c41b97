package archive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid minimal", Config{Bucket: "logs"}, false},
		{"missing bucket", Config{}, true},
		{"blank bucket", Config{Bucket: "   "}, true},
		{"access key without secret", Config{Bucket: "logs", AccessKeyID: "AKIA"}, true},
		{"secret without access key", Config{Bucket: "logs", SecretAccessKey: "s3cr3t"}, true},
		{"both credentials", Config{Bucket: "logs", AccessKeyID: "AKIA", SecretAccessKey: "s3cr3t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArchiveErrorWrapping(t *testing.T) {
	inner := &ArchiveError{Op: "Put", Bucket: "logs", Key: "app-2024-01-01-j1.log", Err: ErrAccessDenied}

	assert.True(t, IsAccessDenied(inner))
	assert.False(t, IsUnavailable(inner))
	assert.Contains(t, inner.Error(), "logs/app-2024-01-01-j1.log")

	var ae *ArchiveError
	assert.True(t, errors.As(inner, &ae))
	assert.Equal(t, "Put", ae.Op)
}

func TestArchiveErrorWithoutKey(t *testing.T) {
	err := &ArchiveError{Op: "New", Bucket: "logs", Err: ErrUnavailable}
	assert.Contains(t, err.Error(), "archive New")
	assert.True(t, IsUnavailable(err))
}
