//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ytaudio-bot/application/dispatch"
	"ytaudio-bot/application/pipeline"
	"ytaudio-bot/application/resolve"
	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/chat"
	"ytaudio-bot/domain/media"
	"ytaudio-bot/infrastructure/ytdlp"

	"github.com/cucumber/godog"
)

// catalogClient is an in-memory media.MetadataClient
type catalogClient struct {
	videos  map[string]media.VideoInfo
	search  map[string]string
	failErr error
}

func (c *catalogClient) LookupByID(ctx context.Context, id string) ([]media.VideoInfo, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	v, ok := c.videos[id]
	if !ok {
		return nil, nil
	}
	return []media.VideoInfo{v}, nil
}

func (c *catalogClient) Search(ctx context.Context, query string, maxResults int64) ([]media.VideoInfo, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	id, ok := c.search[query]
	if !ok {
		return nil, nil
	}
	return []media.VideoInfo{c.videos[id]}, nil
}

// recordingMessenger keeps every reply per chat session
type recordingMessenger struct {
	mu     sync.Mutex
	texts  map[string][]string
	audios map[string][]*audio.Payload
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{
		texts:  make(map[string][]string),
		audios: make(map[string][]*audio.Payload),
	}
}

func (m *recordingMessenger) SendText(ctx context.Context, sessionID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[sessionID] = append(m.texts[sessionID], text)
	return nil
}

func (m *recordingMessenger) SendAudio(ctx context.Context, sessionID string, payload *audio.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audios[sessionID] = append(m.audios[sessionID], payload)
	return nil
}

// countingRunner wraps the real runner and records concurrency and target URLs
type countingRunner struct {
	inner   ytdlp.CommandRunner
	mu      sync.Mutex
	running int
	peak    int
	urls    []string
}

func (r *countingRunner) Run(ctx context.Context, name string, args ...string) (*ytdlp.CommandResult, error) {
	r.mu.Lock()
	r.running++
	if r.running > r.peak {
		r.peak = r.running
	}
	if len(args) > 0 {
		r.urls = append(r.urls, args[len(args)-1])
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()
	return r.inner.Run(ctx, name, args...)
}

type pipelineContext struct {
	tempDir    string
	toolPath   string
	catalog    *catalogClient
	messenger  *recordingMessenger
	runner     *countingRunner
	workers    int
	concurrent int
}

var SharedPipelineContext = &pipelineContext{}

func InitializePipelineScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedPipelineContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "pipeline-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.toolPath = ""
		testCtx.catalog = &catalogClient{
			videos: make(map[string]media.VideoInfo),
			search: make(map[string]string),
		}
		testCtx.messenger = newRecordingMessenger()
		testCtx.runner = &countingRunner{inner: &ytdlp.ExecCommandRunner{}}
		testCtx.workers = dispatch.DefaultWorkers
		testCtx.concurrent = 0
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^the video catalog contains:$`, testCtx.theVideoCatalogContains)
	ctx.Step(`^a search for "([^"]*)" returns "([^"]*)"$`, testCtx.aSearchForReturns)
	ctx.Step(`^the metadata service is unavailable$`, testCtx.theMetadataServiceIsUnavailable)
	ctx.Step(`^the extraction tool outputs "([^"]*)"$`, testCtx.theExtractionToolOutputs)
	ctx.Step(`^the extraction tool outputs "([^"]*)" after (\d+) milliseconds$`, testCtx.theExtractionToolOutputsAfter)
	ctx.Step(`^the extraction tool outputs nothing$`, testCtx.theExtractionToolOutputsNothing)
	ctx.Step(`^the extraction tool fails with exit code (\d+)$`, testCtx.theExtractionToolFailsWithExitCode)
	ctx.Step(`^a worker pool with (\d+) workers$`, testCtx.aWorkerPoolWithWorkers)
	ctx.Step(`^chat "([^"]*)" sends "([^"]*)"$`, testCtx.chatSends)
	ctx.Step(`^(\d+) chats send "([^"]*)" at the same time$`, testCtx.chatsSendAtTheSameTime)
	ctx.Step(`^chat "([^"]*)" receives the audio file "([^"]*)" with (\d+) bytes$`, testCtx.chatReceivesTheAudioFile)
	ctx.Step(`^chat "([^"]*)" receives no audio$`, testCtx.chatReceivesNoAudio)
	ctx.Step(`^the extraction tool was run for "([^"]*)"$`, testCtx.theExtractionToolWasRunFor)
	ctx.Step(`^the extraction tool was not run$`, testCtx.theExtractionToolWasNotRun)
	ctx.Step(`^every chat receives exactly one audio file$`, testCtx.everyChatReceivesExactlyOneAudioFile)
	ctx.Step(`^at most (\d+) extractions ran at the same time$`, testCtx.atMostExtractionsRanAtTheSameTime)
}

func (p *pipelineContext) theVideoCatalogContains(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header
		}
		if len(row.Cells) < 2 {
			return fmt.Errorf("catalog row %d needs an id and a title", i)
		}
		id := row.Cells[0].Value
		p.catalog.videos[id] = media.VideoInfo{ID: id, Title: row.Cells[1].Value}
	}
	return nil
}

func (p *pipelineContext) aSearchForReturns(query, id string) error {
	if _, ok := p.catalog.videos[id]; !ok {
		return fmt.Errorf("video %q is not in the catalog", id)
	}
	p.catalog.search[query] = id
	return nil
}

func (p *pipelineContext) theMetadataServiceIsUnavailable() error {
	p.catalog.failErr = errors.New("youtube: 503 backend error")
	return nil
}

func (p *pipelineContext) writeTool(body string) error {
	p.toolPath = filepath.Join(p.tempDir, "yt-dlp")
	return os.WriteFile(p.toolPath, []byte("#!/bin/sh\n"+body+"\n"), 0755)
}

func (p *pipelineContext) theExtractionToolOutputs(output string) error {
	return p.writeTool(fmt.Sprintf("printf '%%s' '%s'", output))
}

func (p *pipelineContext) theExtractionToolOutputsAfter(output string, millis int) error {
	return p.writeTool(fmt.Sprintf("sleep %.3f\nprintf '%%s' '%s'", float64(millis)/1000, output))
}

func (p *pipelineContext) theExtractionToolOutputsNothing() error {
	return p.writeTool("exit 0")
}

func (p *pipelineContext) theExtractionToolFailsWithExitCode(code int) error {
	return p.writeTool(fmt.Sprintf("echo 'ERROR: Video unavailable' >&2\nexit %d", code))
}

func (p *pipelineContext) aWorkerPoolWithWorkers(workers int) error {
	p.workers = workers
	return nil
}

func (p *pipelineContext) newService() (*pipeline.Service, error) {
	if p.toolPath == "" {
		return nil, fmt.Errorf("no extraction tool configured for this scenario")
	}
	extractor := ytdlp.NewExtractor(
		ytdlp.WithYtDlpPath(p.toolPath),
		ytdlp.WithCommandRunner(p.runner),
		ytdlp.WithTimeout(30*time.Second),
	)
	return pipeline.NewService(resolve.NewService(p.catalog, nil), extractor, p.messenger), nil
}

func (p *pipelineContext) chatSends(sessionID, text string) error {
	svc, err := p.newService()
	if err != nil {
		return err
	}
	req, err := chat.NewInboundRequest(sessionID, text, time.Now())
	if err != nil {
		return err
	}
	svc.Handle(context.Background(), req)
	return nil
}

func (p *pipelineContext) chatsSendAtTheSameTime(count int, text string) error {
	svc, err := p.newService()
	if err != nil {
		return err
	}

	pool := dispatch.NewPool(p.workers, count)
	if err := pool.Start(context.Background()); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		req, err := chat.NewInboundRequest(strconv.Itoa(1000+i), text, time.Now())
		if err != nil {
			return err
		}
		if err := pool.Submit(context.Background(), func(ctx context.Context) { svc.Handle(ctx, req) }); err != nil {
			return err
		}
	}
	pool.Drain()

	p.concurrent = count
	return nil
}

func (p *pipelineContext) chatReceivesTheAudioFile(sessionID, filename string, size int) error {
	p.messenger.mu.Lock()
	defer p.messenger.mu.Unlock()

	audios := p.messenger.audios[sessionID]
	if len(audios) != 1 {
		return fmt.Errorf("expected exactly one audio for chat %s, got %d", sessionID, len(audios))
	}
	if audios[0].Filename != filename {
		return fmt.Errorf("expected filename %q, got %q", filename, audios[0].Filename)
	}
	if audios[0].Size() != size {
		return fmt.Errorf("expected %d bytes, got %d", size, audios[0].Size())
	}
	return nil
}

func (p *pipelineContext) chatReceivesNoAudio(sessionID string) error {
	p.messenger.mu.Lock()
	defer p.messenger.mu.Unlock()

	if n := len(p.messenger.audios[sessionID]); n != 0 {
		return fmt.Errorf("expected no audio for chat %s, got %d", sessionID, n)
	}
	return nil
}

func (p *pipelineContext) theExtractionToolWasRunFor(url string) error {
	p.runner.mu.Lock()
	defer p.runner.mu.Unlock()

	if len(p.runner.urls) != 1 || p.runner.urls[0] != url {
		return fmt.Errorf("expected one extraction for %q, got %v", url, p.runner.urls)
	}
	return nil
}

func (p *pipelineContext) theExtractionToolWasNotRun() error {
	p.runner.mu.Lock()
	defer p.runner.mu.Unlock()

	if len(p.runner.urls) != 0 {
		return fmt.Errorf("expected no extraction, got %v", p.runner.urls)
	}
	return nil
}

func (p *pipelineContext) everyChatReceivesExactlyOneAudioFile() error {
	p.messenger.mu.Lock()
	defer p.messenger.mu.Unlock()

	if len(p.messenger.audios) != p.concurrent {
		return fmt.Errorf("expected %d chats with audio, got %d", p.concurrent, len(p.messenger.audios))
	}
	for sessionID, audios := range p.messenger.audios {
		if len(audios) != 1 {
			return fmt.Errorf("chat %s received %d audio files", sessionID, len(audios))
		}
	}
	return nil
}

func (p *pipelineContext) atMostExtractionsRanAtTheSameTime(limit int) error {
	p.runner.mu.Lock()
	defer p.runner.mu.Unlock()

	if p.runner.peak > limit {
		return fmt.Errorf("expected at most %d concurrent extractions, saw %d", limit, p.runner.peak)
	}
	if p.runner.peak == 0 {
		return fmt.Errorf("no extraction ran")
	}
	return nil
}

// replyText maps the reply names used in feature files to the default texts
func replyText(name string) (string, error) {
	m := pipeline.DefaultMessages()
	switch strings.TrimSpace(name) {
	case "greeting":
		return m.Greeting, nil
	case "acknowledge":
		return m.Acknowledge, nil
	case "invalid link":
		return m.InvalidLink, nil
	case "not found":
		return m.NotFound, nil
	case "download failed":
		return m.DownloadFailed, nil
	case "generic error":
		return m.GenericError, nil
	case "unauthorized":
		return m.Unauthorized, nil
	case "unknown command":
		return m.UnknownCommand, nil
	}
	return "", fmt.Errorf("unknown reply name %q", name)
}

// expectReplies compares the texts a chat received with a comma separated list of reply names
func expectReplies(got []string, names string) error {
	var want []string
	for _, name := range strings.Split(names, ",") {
		text, err := replyText(name)
		if err != nil {
			return err
		}
		want = append(want, text)
	}

	if len(got) != len(want) {
		return fmt.Errorf("expected replies %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("reply %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
	return nil
}
