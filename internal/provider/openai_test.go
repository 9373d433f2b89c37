package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dayflow/internal/chat"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = srv.URL
	client := NewOpenAIClientWithConfig(cfg)
	if err := client.Configure(SessionConfig{Model: "gpt-4o-mini", SystemPreamble: "프리앰블"}); err != nil {
		t.Fatal(err)
	}
	return client
}

func TestOpenAIClient_Send(t *testing.T) {
	var gotReq openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  안녕하세요!  "}}]}`)
	})

	reply, err := client.Send(context.Background(), []chat.Message{
		chat.User("이전 질문"),
		chat.Assistant("이전 답변"),
		chat.User("안녕"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "안녕하세요!" {
		t.Errorf("reply = %q, want trimmed content", reply)
	}
	if len(gotReq.Messages) != 4 {
		t.Fatalf("request carried %d messages, want preamble + 3 history", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "프리앰블" {
		t.Errorf("first message = %+v, want injected system preamble", gotReq.Messages[0])
	}
	if gotReq.Messages[3].Content != "안녕" {
		t.Errorf("final message = %+v, want the newest user turn", gotReq.Messages[3])
	}
}

func TestOpenAIClient_HistorySystemMessageWins(t *testing.T) {
	var gotReq openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	_, err := client.Send(context.Background(), []chat.Message{
		chat.System("히스토리 프리앰블"),
		chat.User("안녕"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("request carried %d messages; configured preamble must not double the system slot", len(gotReq.Messages))
	}
}

func TestOpenAIClient_MissingKeyIsConfigError(t *testing.T) {
	client := NewOpenAIClient("")

	if err := client.Configure(SessionConfig{Model: "gpt-4o"}); !IsConfigError(err) {
		t.Errorf("Configure err = %v, want ConfigError", err)
	}
	_, err := client.Send(context.Background(), []chat.Message{chat.User("hi")})
	if !IsConfigError(err) {
		t.Errorf("Send err = %v, want ConfigError", err)
	}
}

func TestOpenAIClient_UpstreamFailureIsTransportError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.Send(context.Background(), []chat.Message{chat.User("hi")})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if IsConfigError(err) {
		t.Error("transport failure must not classify as configuration error")
	}
}

func TestOpenAIClient_SendStream(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming request must set stream=true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"안녕\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"하세요\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n") // malformed chunks are skipped
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.SendStream(context.Background(), []chat.Message{chat.User("인사해줘")})
	if err != nil {
		t.Fatal(err)
	}
	text, err := stream.Drain(nil)
	if err != nil {
		t.Fatal(err)
	}
	if text != "안녕하세요" {
		t.Errorf("streamed text = %q", text)
	}
}

func TestOpenAIClient_SendStreamUpstreamError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	})

	stream, err := client.SendStream(context.Background(), []chat.Message{chat.User("hi")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = stream.Drain(nil)
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
}
