package tts

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talevox/talevox/internal/resilience"
)

const (
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	synthesisURL = "wss://speech.platform.bing.com/consumer/speech/synthesize/" +
		"readaloud/edge/v1?TrustedClientToken=" + trustedClientToken
	voiceListURL = "https://speech.platform.bing.com/consumer/speech/synthesize/" +
		"readaloud/voices/list?trustedclienttoken=" + trustedClientToken

	// outputFormat is the only stream format the merge step supports: the
	// per-chunk artifacts are concatenated losslessly, so every chunk must
	// share one codec and bitrate.
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	wsOrigin    = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	wsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
)

// EdgeClient implements Synthesizer against the Edge speech service.
// Each Synthesize call opens one websocket session, streams the audio frames
// for a single chunk of text into the output file, and closes the session.
type EdgeClient struct {
	dialer     *websocket.Dialer
	httpClient *http.Client
}

// NewEdgeClient creates a new Edge speech service client
func NewEdgeClient() *EdgeClient {
	return &EdgeClient{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Synthesize converts one chunk of text to audio, writing the MP3 stream to
// outputPath. One call is one attempt; any failure is returned as-is.
func (c *EdgeClient) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	header := http.Header{}
	header.Set("Origin", wsOrigin)
	header.Set("User-Agent", wsUserAgent)

	conn, resp, err := c.dialer.DialContext(ctx, synthesisURL+"&ConnectionId="+connectionID(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("speech service handshake failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("speech service connection failed: %w", err)
	}
	defer conn.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return fmt.Errorf("failed to send speech config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(text, voice))); err != nil {
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("speech service stream error: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			payload, ok := parseAudioFrame(data)
			if !ok {
				continue // metadata frame, not audio
			}
			if _, err := out.Write(payload); err != nil {
				return fmt.Errorf("failed to write audio data: %w", err)
			}
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return out.Sync()
			}
		}
	}
}

// ListVoices fetches the remote voice catalog, sorted by short name.
// The catalog fetch is retried on transient network errors; synthesis
// calls are not.
func (c *EdgeClient) ListVoices(ctx context.Context) ([]Voice, error) {
	var voices []Voice

	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, voiceListURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", wsUserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("voice catalog returned status %d: %s", resp.StatusCode, body)
		}
		return json.NewDecoder(resp.Body).Decode(&voices)
	}

	err := resilience.Retry(fetch, resilience.DefaultRetryConfig(), resilience.IsRetryableNetworkError)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voice catalog: %w", err)
	}

	sort.Slice(voices, func(i, j int) bool { return voices[i].ShortName < voices[j].ShortName })
	return voices, nil
}

// parseAudioFrame extracts the audio payload from a binary service frame.
// Frames start with a big-endian uint16 header length followed by the header
// text; only frames whose header carries "Path:audio" contain audio bytes.
func parseAudioFrame(data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, false
	}
	header := string(data[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	return data[2+headerLen:], true
}

// speechConfigMessage builds the session configuration message
func speechConfigMessage() string {
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + outputFormat + `"}}}}`
}

// ssmlMessage builds the per-chunk synthesis request
func ssmlMessage(text, voice string) string {
	return "X-RequestId:" + connectionID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" +
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>" +
		"<voice name='" + voice + "'>" + escapeSSML(text) + "</voice></speak>"
}

// escapeSSML escapes characters that would break the SSML document
func escapeSSML(text string) string {
	return ssmlEscaper.Replace(text)
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// connectionID returns a dashless UUID as required by the service
func connectionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
