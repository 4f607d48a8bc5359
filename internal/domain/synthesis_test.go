package domain

import (
	"testing"
)

func TestParseVoiceProfile(t *testing.T) {
	tests := []struct {
		in   string
		want VoiceProfile
	}{
		{"male", VoiceMale},
		{"female", VoiceFemale},
		{"", VoiceFemale},
		{"robot", VoiceFemale},
	}

	for _, tt := range tests {
		if got := ParseVoiceProfile(tt.in); got != tt.want {
			t.Errorf("ParseVoiceProfile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSynthesisJob_Transitions(t *testing.T) {
	j := &SynthesisJob{Status: SynthesisStatusPending}

	if !j.IsLive() {
		t.Error("pending job should be live")
	}
	if j.IsTerminal() {
		t.Error("pending job should not be terminal")
	}

	j.MarkProcessing()
	if j.Status != SynthesisStatusProcessing {
		t.Errorf("status = %q, want processing", j.Status)
	}
	if j.StartedAt == nil {
		t.Error("StartedAt not set on processing transition")
	}
	if !j.IsLive() {
		t.Error("processing job should be live")
	}

	j.MarkCompleted("/audio/chapters/ch-1.mp3", 42)
	if j.Status != SynthesisStatusCompleted {
		t.Errorf("status = %q, want completed", j.Status)
	}
	if j.AudioURL != "/audio/chapters/ch-1.mp3" || j.DurationSeconds != 42 {
		t.Errorf("artifact fields not carried: url=%q duration=%d", j.AudioURL, j.DurationSeconds)
	}
	if j.CompletedAt == nil {
		t.Error("CompletedAt not set on completed transition")
	}
	if j.IsLive() || !j.IsTerminal() {
		t.Error("completed job should be terminal")
	}
}

func TestSynthesisJob_MarkFailed(t *testing.T) {
	j := &SynthesisJob{Status: SynthesisStatusProcessing}

	j.MarkFailed(FailureSynthesisProvider, "provider returned 503 for chunk 2")
	if j.Status != SynthesisStatusFailed {
		t.Errorf("status = %q, want failed", j.Status)
	}
	if j.FailureReason != FailureSynthesisProvider {
		t.Errorf("reason = %q, want synthesis-provider", j.FailureReason)
	}
	if j.CompletedAt == nil {
		t.Error("CompletedAt not set on failed transition")
	}
	if j.AudioURL != "" {
		t.Error("failed job must not reference an artifact")
	}
}

func TestHashContent(t *testing.T) {
	a := HashContent("Once upon a time.", VoiceFemale)
	b := HashContent("Once upon a time.", VoiceFemale)
	if a != b {
		t.Error("hash not deterministic")
	}

	if HashContent("Once upon a time.", VoiceMale) == a {
		t.Error("voice profile should change the hash")
	}
	if HashContent("Once upon a time!", VoiceFemale) == a {
		t.Error("text change should change the hash")
	}
}
