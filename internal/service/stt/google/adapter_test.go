package google

import (
	"io"
	"testing"

	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeStream feeds canned responses into the receive loop. The queue
// ends with err once the responses run out.
type fakeStream struct {
	speechpb.Speech_StreamingRecognizeClient

	responses []*speechpb.StreamingRecognizeResponse
	err       error
}

func (f *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	if len(f.responses) == 0 {
		return nil, f.err
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

type recordingCallback struct {
	partials []string
	finals   []string
	errs     []error
}

func (c *recordingCallback) OnPartial(text string) { c.partials = append(c.partials, text) }
func (c *recordingCallback) OnFinal(text string, confidence float64) {
	c.finals = append(c.finals, text)
}
func (c *recordingCallback) OnError(err error) { c.errs = append(c.errs, err) }

func recognitionResponse(text string, final bool) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{
				IsFinal: final,
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Transcript: text, Confidence: 0.9},
				},
			},
		},
	}
}

func TestListen_DeliversPartialsAndFinals(t *testing.T) {
	cb := &recordingCallback{}
	a := &Adapter{
		stream: &fakeStream{
			responses: []*speechpb.StreamingRecognizeResponse{
				recognitionResponse("tell me", false),
				recognitionResponse("tell me about the project", true),
			},
			err: io.EOF,
		},
		cb: cb,
	}

	a.listen()

	if len(cb.partials) != 1 || cb.partials[0] != "tell me" {
		t.Errorf("expected one partial 'tell me', got %v", cb.partials)
	}
	if len(cb.finals) != 1 || cb.finals[0] != "tell me about the project" {
		t.Errorf("expected one final 'tell me about the project', got %v", cb.finals)
	}
	if len(cb.errs) != 1 || cb.errs[0] != io.EOF {
		t.Errorf("expected listen to end with io.EOF, got %v", cb.errs)
	}
}

func TestListen_SurfacesReceiveError(t *testing.T) {
	denied := status.Error(codes.PermissionDenied, "credentials revoked")
	cb := &recordingCallback{}
	a := &Adapter{
		stream: &fakeStream{err: denied},
		cb:     cb,
	}

	a.listen()

	if len(cb.errs) != 1 || cb.errs[0] != denied {
		t.Errorf("expected receive error surfaced to callback, got %v", cb.errs)
	}
}

func TestListen_SkipsEmptyAlternatives(t *testing.T) {
	cb := &recordingCallback{}
	a := &Adapter{
		stream: &fakeStream{
			responses: []*speechpb.StreamingRecognizeResponse{
				{Results: []*speechpb.StreamingRecognitionResult{{IsFinal: true}}},
			},
			err: io.EOF,
		},
		cb: cb,
	}

	a.listen()

	if len(cb.finals) != 0 {
		t.Errorf("expected no finals from a result without alternatives, got %v", cb.finals)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"UNKNOWN", speechpb.RecognitionConfig_WEBM_OPUS}, // fallback
		{"invalid", speechpb.RecognitionConfig_WEBM_OPUS}, // fallback
		{"", speechpb.RecognitionConfig_WEBM_OPUS},        // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseAudioEncoding_CaseSensitive(t *testing.T) {
	// Encoding strings should be uppercase
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"linear16", speechpb.RecognitionConfig_WEBM_OPUS}, // lowercase -> fallback
		{"Linear16", speechpb.RecognitionConfig_WEBM_OPUS}, // mixed case -> fallback
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},  // uppercase -> match
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
