package sl_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)

	assert.Equal(t, "", sl.Err(nil).Value.String())
}

func TestNew(t *testing.T) {
	tests := []struct {
		env       string
		wantJSON  bool
		wantDebug bool
	}{
		{env: sl.EnvLocal, wantJSON: false, wantDebug: true},
		{env: sl.EnvDev, wantJSON: true, wantDebug: true},
		{env: sl.EnvProd, wantJSON: true, wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := sl.New(tt.env, &buf)
			log.Debug("debug line")
			log.Info("info line", sl.Err(errors.New("boom")))

			out := buf.String()
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Contains(t, out, "info line")
			assert.Contains(t, out, "boom")
			if tt.wantJSON {
				assert.Contains(t, out, `"msg":"info line"`)
			} else {
				assert.Contains(t, out, "msg=\"info line\"")
			}
		})
	}
}
