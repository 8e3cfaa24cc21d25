package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
	"github.com/MeKo-Tech/pdfmask/internal/server"
)

// apiRunner is a canned pipeline used so API scenarios do not depend on the
// external OCR and rendering binaries.
type apiRunner struct {
	store *apiStore
}

func (r *apiRunner) Run(_ context.Context, runID string, input []byte, literals []string,
	token *cancel.Token, sink pipeline.Sink,
) (*pipeline.Result, error) {
	if err := token.Err(); err != nil {
		return nil, err
	}
	if sink != nil {
		sink.Publish(pipeline.ProgressEvent{Percentage: 100, Message: "redaction finished"})
	}
	r.store.data[runID] = []byte("%PDF-1.4 redacted")
	return &pipeline.Result{
		OutputPath: "/out/" + runID + ".pdf",
		Pages:      1,
		Hits:       len(literals),
	}, nil
}

type apiStore struct {
	data map[string][]byte
}

func (s *apiStore) Open(runID string) ([]byte, error) {
	data, ok := s.data[runID]
	if !ok {
		return nil, fmt.Errorf("no output for run %s", runID)
	}
	return data, nil
}

type apiServer struct {
	ts *httptest.Server
}

func (s *apiServer) Close() { s.ts.Close() }

// RegisterServerSteps wires the steps exercising the HTTP API.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a running redaction API server$`, testCtx.aRunningRedactionAPIServer)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST "([^"]*)" with a PDF named "([^"]*)" and words "([^"]*)" as client "([^"]*)"$`,
		testCtx.iPOSTWithPDF)
	sc.Step(`^I POST "([^"]*)" with body '([^']*)'$`, testCtx.iPOSTWithBody)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^run "([^"]*)" should reach status "([^"]*)"$`, testCtx.runShouldReachStatus)
}

func (testCtx *TestContext) aRunningRedactionAPIServer() error {
	store := &apiStore{data: make(map[string][]byte)}
	srv := server.New(server.Config{CORSOrigin: "*", MaxUploadMB: 10}, &apiRunner{store: store}, store)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.apiServer = &apiServer{ts: httptest.NewServer(mux)}
	return nil
}

func (testCtx *TestContext) requireServer() error {
	if testCtx.apiServer == nil {
		return fmt.Errorf("no API server running; missing background step")
	}
	return nil
}

func (testCtx *TestContext) record(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	return nil
}

func (testCtx *TestContext) iGET(path string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := http.Get(testCtx.apiServer.ts.URL + path) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) iPOSTWithPDF(path, filename, words, clientID string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write([]byte("%PDF-1.4 sample")); err != nil {
		return err
	}
	if words != "" {
		if err := writer.WriteField("words", strings.ReplaceAll(words, ";", "\n")); err != nil {
			return err
		}
	}
	if clientID != "" {
		if err := writer.WriteField("client_id", clientID); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := http.Post(testCtx.apiServer.ts.URL+path, writer.FormDataContentType(), &buf) //nolint:noctx
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) iPOSTWithBody(path, body string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := http.Post(testCtx.apiServer.ts.URL+path, "application/json", //nolint:noctx
		strings.NewReader(body))
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nbody: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q\nbody: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) runShouldReachStatus(runID, want string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := testCtx.iGET("/api/status?run_id=" + runID); err != nil {
			return err
		}
		if testCtx.LastHTTPStatusCode == http.StatusOK {
			var state struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &state); err != nil {
				return err
			}
			if state.Status == want {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("run %s never reached status %q; last response: %s",
		runID, want, testCtx.LastHTTPResponse)
}
