package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/shipitai/filereviewer/app"
	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/review"
	"github.com/shipitai/filereviewer/storage"
)

// reviewTimeout bounds one pull request review, including retries.
const reviewTimeout = 10 * time.Minute

// installationClient is the GitHub surface a webhook-triggered run needs.
type installationClient interface {
	app.GitHubAPI
	config.FileFetcher
}

type server struct {
	logger   *slog.Logger
	webhook  *github.WebhookHandler
	defaults *config.Inputs
	// store is nil when no database is configured.
	store storage.Storage

	newClient func(installationID int64) (installationClient, error)
	newModel  func(in *config.Inputs, logger *slog.Logger) (review.Model, error)

	runs sync.WaitGroup
}

func newServer(webhook *github.WebhookHandler, defaults *config.Inputs, logger *slog.Logger) *server {
	return &server{
		logger:   logger,
		webhook:  webhook,
		defaults: defaults,
		newModel: app.NewModel,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/github", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// wait blocks until background reviews finish.
func (s *server) wait() {
	s.runs.Wait()
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"name":   "filereviewer",
		"status": "running",
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("failed to read body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	s.logger.Info("received webhook", "event", eventType, "delivery", deliveryID, "size", len(payload))

	if err := s.webhook.VerifySignature(payload, r.Header.Get("X-Hub-Signature-256")); err != nil {
		s.logger.Error("signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if eventType == github.EventPing {
		s.logger.Info("received ping")
		jsonResponse(w, http.StatusOK, map[string]string{"message": "pong"})
		return
	}

	if eventType != github.EventPullRequest {
		s.logger.Info("ignoring event", "type", eventType)
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event ignored"})
		return
	}

	event, err := github.ParsePullRequestEvent(payload)
	if err != nil {
		s.logger.Error("failed to parse event", "error", err)
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	if !s.webhook.ShouldProcess(eventType, event) {
		s.logger.Info("skipping event", "action", event.GetAction())
		jsonResponse(w, http.StatusOK, map[string]string{"message": "event skipped"})
		return
	}

	if event.GetInstallation().GetID() == 0 || event.GetRepo().GetOwner().GetLogin() == "" {
		http.Error(w, "event has no installation or repository", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.store != nil && deliveryID != "" {
		claimed, err := s.store.ClaimDelivery(ctx, deliveryID)
		if err != nil {
			s.logger.Error("failed to claim delivery", "delivery", deliveryID, "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		if !claimed {
			s.logger.Info("duplicate delivery, skipping", "delivery", deliveryID)
			jsonResponse(w, http.StatusOK, map[string]string{"message": "duplicate delivery"})
			return
		}
	}

	s.recordInstallation(ctx, event)

	s.logger.Info("processing PR",
		"repo", event.GetRepo().GetFullName(),
		"pr", event.GetNumber(),
		"action", event.GetAction(),
	)

	jsonResponse(w, http.StatusAccepted, map[string]string{"message": "review started"})

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()

		ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
		defer cancel()
		s.review(ctx, deliveryID, event)
	}()
}

// recordInstallation creates the installation row on first sight.
func (s *server) recordInstallation(ctx context.Context, event *github.PullRequestEvent) {
	if s.store == nil {
		return
	}
	installationID := event.GetInstallation().GetID()
	install, err := s.store.GetInstallation(ctx, installationID)
	if err != nil {
		s.logger.Error("failed to load installation", "error", err)
		return
	}
	if install != nil {
		return
	}
	install = &storage.Installation{
		InstallationID: installationID,
		OrgLogin:       event.GetRepo().GetOwner().GetLogin(),
		InstalledAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.SaveInstallation(ctx, install); err != nil {
		s.logger.Error("failed to save installation", "error", err)
	}
}

// review runs one pull request review with its own RunGuard, so a delivery is
// reviewed at most once even if this is called again for it.
func (s *server) review(ctx context.Context, deliveryID string, event *github.PullRequestEvent) {
	owner, repo := event.GetRepo().GetOwner().GetLogin(), event.GetRepo().GetName()
	pull, sha := event.GetNumber(), event.GetPullRequest().GetHead().GetSHA()
	installationID := event.GetInstallation().GetID()
	logger := s.logger.With("delivery", deliveryID, "owner", owner, "repo", repo, "pr", pull)

	if s.alreadyReviewed(ctx, owner, repo, pull, sha, logger) {
		logger.Info("head commit already reviewed, skipping", "sha", sha)
		return
	}

	gh, err := s.newClient(installationID)
	if err != nil {
		logger.Error("failed to create installation client", "error", err)
		return
	}

	repoCfg, err := config.NewLoader(gh).Load(ctx, owner, repo, "")
	if err != nil {
		logger.Error("failed to load repository config", "error", err)
		return
	}
	if !repoCfg.IsEnabled() {
		logger.Info("reviews disabled by repository config")
		return
	}

	in := *s.defaults
	in.ExcludePatterns = slices.Clone(s.defaults.ExcludePatterns)
	repoCfg.Apply(&in)

	runInput := app.RunInput(github.EventPullRequest, event.GetAction(), owner, repo, pull, sha, &in)

	outcome, runErr := s.run(ctx, gh, &in, runInput, logger)
	if outcome == nil && runErr == nil {
		return
	}

	if s.store != nil {
		rec := app.RunRecord(deliveryID, installationID, runInput, outcome, runErr)
		if err := s.store.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}
}

// alreadyReviewed reports whether a stored run finished cleanly for sha.
// Events such as an edited title reuse the head commit and would otherwise
// post every file comment again. Storage errors do not block the review.
func (s *server) alreadyReviewed(ctx context.Context, owner, repo string, pull int, sha string, logger *slog.Logger) bool {
	if s.store == nil || sha == "" {
		return false
	}
	runs, err := s.store.ListRunsForPR(ctx, owner, repo, pull)
	if err != nil {
		logger.Error("failed to list previous runs", "error", err)
		return false
	}
	return lo.ContainsBy(runs, func(r *storage.RunRecord) bool {
		return r.HeadSHA == sha && r.State == string(review.StateDone)
	})
}

func (s *server) run(ctx context.Context, gh installationClient, in *config.Inputs, runInput *review.RunInput, logger *slog.Logger) (*review.RunOutcome, error) {
	model, err := s.newModel(in, logger)
	if err != nil {
		logger.Error("failed to create model client", "error", err)
		return nil, err
	}
	orchestrator, err := app.NewOrchestrator(gh, model, in, logger)
	if err != nil {
		logger.Error("failed to create orchestrator", "error", err)
		return nil, err
	}

	outcome, err := orchestrator.Run(ctx, review.NewRunGuard(), runInput)
	if err != nil {
		logger.Error("review failed", "error", err)
	}
	return outcome, err
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
