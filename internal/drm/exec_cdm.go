package drm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
)

// execCdmSession shells out to an external CDM helper binary for each
// challenge/license-parse step, the same subprocess idiom decryptor and
// muxer use for mp4decrypt/ffmpeg (DESIGN.md: no pure-Go Widevine/
// PlayReady client implementation exists in the example pack).
type execCdmSession struct {
	binary         string
	deviceBlobPath string
}

// NewExecCdmFactory returns a CdmFactory that drives binary as a one-shot
// subprocess per operation: `binary challenge <deviceBlob> <pssh>` prints
// a base64 challenge to stdout, and `binary parse-license <deviceBlob>`
// reads a base64 license response on stdin and prints newline-separated
// "kid:key" pairs. binary is expected to be a CDM wrapper the operator
// provides (e.g. a pywidevine or playready CLI shim); it is not shipped
// here.
func NewExecCdmFactory(binary string) CdmFactory {
	return func(ctx context.Context, deviceBlobPath string) (CdmSession, error) {
		return &execCdmSession{binary: binary, deviceBlobPath: deviceBlobPath}, nil
	}
}

func (s *execCdmSession) Challenge(ctx context.Context, pssh string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.binary, "challenge", s.deviceBlobPath, pssh)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("drm: cdm challenge: %w: %s", err, stderr.String())
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(stdout.String()))
}

func (s *execCdmSession) ParseLicense(ctx context.Context, response []byte) ([]string, error) {
	cmd := exec.CommandContext(ctx, s.binary, "parse-license", s.deviceBlobPath)
	cmd.Stdin = strings.NewReader(base64.StdEncoding.EncodeToString(response))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("drm: cdm parse-license: %w: %s", err, stderr.String())
	}

	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

func (s *execCdmSession) Close() error { return nil }
