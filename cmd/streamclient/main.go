// streamclient creates a session against a running orchestrator and
// streams an audio file plus an optional JPEG frame over the ingest
// WebSocket, simulating a live interview uplink.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Stream audio in chunks to simulate real-time capture.
// 100ms chunks keep the orchestrator's VAD poll fed.
const chunkSize = 4096
const chunkIntervalMs = 100

const kindAudio = 0x01
const kindFrame = 0x02

func main() {
	audioFile := flag.String("audio", "../../testdata/sample.webm", "Path to audio file (WebM/Opus)")
	frameFile := flag.String("frame", "", "Optional path to a JPEG frame to send every 2s")
	serverAddr := flag.String("server", "localhost:8080", "Orchestrator address")
	role := flag.String("role", "Backend Engineer", "Job role for the session")
	description := flag.String("description", "Builds and operates distributed services", "Job description")
	flag.Parse()

	audio, err := os.ReadFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}

	var frame []byte
	if *frameFile != "" {
		frame, err = os.ReadFile(*frameFile)
		if err != nil {
			log.Fatalf("Failed to read frame file: %v", err)
		}
	}

	sessionId := createSession(*serverAddr, *role, *description)
	log.Printf("Session created: %s", sessionId)

	wsURL := fmt.Sprintf("ws://%s/v1/sessions/%s/stream", *serverAddr, sessionId)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect ingest stream: %v", err)
	}
	defer conn.Close()

	log.Printf("Streaming %d bytes of audio in %dms chunks", len(audio), chunkIntervalMs)

	var totalBytes int
	var chunkNum int
	startTime := time.Now()
	lastFrame := time.Time{}

	for offset := 0; offset < len(audio); offset += chunkSize {
		end := offset + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		chunk := audio[offset:end]

		chunkNum++
		totalBytes += len(chunk)

		if err := conn.WriteMessage(websocket.BinaryMessage, append([]byte{kindAudio}, chunk...)); err != nil {
			log.Fatalf("Failed to send audio chunk: %v", err)
		}

		// A synthetic RMS reading derived from the chunk keeps the
		// detector and energy tracker exercised.
		sample := map[string]any{"type": "energy", "rms": syntheticRMS(chunk)}
		payload, _ := json.Marshal(sample)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Fatalf("Failed to send energy sample: %v", err)
		}

		if len(frame) > 0 && time.Since(lastFrame) >= 2*time.Second {
			lastFrame = time.Now()
			if err := conn.WriteMessage(websocket.BinaryMessage, append([]byte{kindFrame}, frame...)); err != nil {
				log.Fatalf("Failed to send frame: %v", err)
			}
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, time.Since(startTime))

	// Leave the session running long enough for a final evaluation
	// tick, then stop it.
	time.Sleep(3 * time.Second)

	snapshot(*serverAddr, sessionId)
	stopSession(*serverAddr, sessionId)
	log.Printf("Session stopped: %s", sessionId)
}

func createSession(addr, role, description string) string {
	body, _ := json.Marshal(map[string]string{"role": role, "job_description": description})
	resp, err := http.Post(fmt.Sprintf("http://%s/v1/sessions", addr), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		log.Fatalf("Session creation failed: %d %s", resp.StatusCode, data)
	}
	var snap struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Fatalf("Failed to decode session: %v", err)
	}
	return snap.ID
}

func snapshot(addr, sessionId string) {
	resp, err := http.Get(fmt.Sprintf("http://%s/v1/sessions/%s", addr, sessionId))
	if err != nil {
		log.Printf("Snapshot fetch failed: %v", err)
		return
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	log.Printf("Final snapshot: %s", data)
}

func stopSession(addr, sessionId string) {
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("http://%s/v1/sessions/%s", addr, sessionId), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Failed to stop session: %v", err)
	}
	_ = resp.Body.Close()
}

// syntheticRMS treats the chunk bytes as a rough amplitude proxy. Good
// enough to drive calibration and speech boundaries in a demo run.
func syntheticRMS(chunk []byte) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, b := range chunk {
		v := (float64(b) - 128) / 128
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(chunk)))
}
