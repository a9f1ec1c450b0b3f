package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/jaypee15/veirifire/internal/audit"
	badgehandler "github.com/jaypee15/veirifire/internal/badge/handler"
	badgeservice "github.com/jaypee15/veirifire/internal/badge/service"
	badgestore "github.com/jaypee15/veirifire/internal/badge/store"
	orghandler "github.com/jaypee15/veirifire/internal/org/handler"
	orgservice "github.com/jaypee15/veirifire/internal/org/service"
	orgstore "github.com/jaypee15/veirifire/internal/org/store"
	"github.com/jaypee15/veirifire/internal/platform/health"
	"github.com/jaypee15/veirifire/pkg/platform/middleware/request"
)

// LifecycleSuite drives the full badge lifecycle through the HTTP surface,
// middleware chain included, the way a client would.
type LifecycleSuite struct {
	suite.Suite
	server *httptest.Server
	events *audit.InMemoryStore
	client *http.Client
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	s.events = audit.NewInMemoryStore()
	auditor := audit.NewPublisher(s.events)

	orgs := orgservice.NewService(orgstore.NewInMemory(),
		orgservice.WithLogger(logger),
		orgservice.WithAuditor(auditor),
	)

	router := chi.NewRouter()
	router.Use(request.Recovery(logger))
	router.Use(request.RequestID)
	router.Use(request.RequestTime)
	router.Use(request.ClientIP)
	router.Use(request.Timeout(10 * time.Second))

	s.server = httptest.NewServer(router)
	s.client = s.server.Client()

	badges := badgeservice.NewService(badgestore.NewInMemory(), orgs, s.server.URL,
		badgeservice.WithLogger(logger),
		badgeservice.WithAuditor(auditor),
	)

	health.New("test").Register(router)
	badgehandler.New(badges, logger).Register(router)
	orghandler.New(orgs, logger).Register(router)
}

func (s *LifecycleSuite) TearDownTest() {
	s.server.Close()
}

func (s *LifecycleSuite) post(path string, body map[string]any) (int, map[string]any) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := s.client.Post(s.server.URL+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	return s.read(resp)
}

func (s *LifecycleSuite) put(path string, body map[string]any) (int, map[string]any) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPut, s.server.URL+path, bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return s.read(resp)
}

func (s *LifecycleSuite) get(path string) (int, map[string]any) {
	resp, err := s.client.Get(s.server.URL + path)
	s.Require().NoError(err)
	return s.read(resp)
}

func (s *LifecycleSuite) read(resp *http.Response) (int, map[string]any) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var decoded map[string]any
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func (s *LifecycleSuite) TestFullBadgeLifecycle() {
	// Register the issuing organization.
	status, org := s.post("/organizations", map[string]any{
		"name":  "Gopher Academy",
		"url":   "https://gopheracademy.example.org",
		"email": "badges@gopheracademy.example.org",
	})
	s.Require().Equal(http.StatusCreated, status)
	orgID := org["id"].(string)

	// Issue a badge to a recipient.
	status, badge := s.post("/badges", map[string]any{
		"name":           "Go Fundamentals",
		"description":    "Completed the Go fundamentals track",
		"image":          "https://gopheracademy.example.org/images/go-fundamentals.png",
		"criteria":       map[string]any{"narrative": "Finish all modules"},
		"organizationId": orgID,
		"recipient":      map[string]any{"identity": "dev@example.com", "type": "email"},
	})
	s.Require().Equal(http.StatusCreated, status)
	badgeID := badge["id"].(string)
	externalID := badge["badgeId"].(string)

	// The hosted verification URL answers valid, end to end.
	verification := badge["verification"].(map[string]any)
	s.Equal(s.server.URL+"/badges/verify/"+externalID, verification["url"])

	status, result := s.get("/badges/verify/" + externalID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(true, result["valid"])
	s.Equal("Valid", result["status"])

	// The recipient sees the badge.
	status, list := s.get("/badges/recipient/dev@example.com")
	s.Require().Equal(http.StatusOK, status)
	s.Equal(float64(1), list["count"])

	// Attach evidence after issuance.
	status, _ = s.post("/badges/"+badgeID+"/evidence", map[string]any{
		"evidence": map[string]any{
			"id":          "https://github.example.com/dev/capstone",
			"type":        "url",
			"description": "capstone project",
		},
	})
	s.Require().Equal(http.StatusOK, status)

	// Revoke, then confirm verification flips and the reason travels.
	status, _ = s.put("/badges/"+badgeID+"/revoke", map[string]any{"reason": "certification lapsed"})
	s.Require().Equal(http.StatusOK, status)

	status, result = s.get("/badges/verify/" + externalID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(false, result["valid"])
	s.Equal("Badge revoked: certification lapsed", result["status"])

	// Revoked badges leave the recipient's listing.
	status, list = s.get("/badges/recipient/dev@example.com")
	s.Require().Equal(http.StatusOK, status)
	s.Equal(float64(0), list["count"])

	// The audit trail has every lifecycle action in order.
	events := s.events.BySubject(externalID)
	s.Require().Len(events, 3)
	s.Equal(audit.ActionBadgeIssued, events[0].Action)
	s.Equal(audit.ActionEvidenceAdded, events[1].Action)
	s.Equal(audit.ActionBadgeRevoked, events[2].Action)
	for _, event := range events {
		s.NotEmpty(event.RequestID, "middleware request IDs reach the audit trail")
	}
}

func (s *LifecycleSuite) TestDeletedOrganizationBadgesStayVerifiable() {
	status, org := s.post("/organizations", map[string]any{
		"name":  "Ephemeral Org",
		"url":   "https://ephemeral.example.org",
		"email": "badges@ephemeral.example.org",
	})
	s.Require().Equal(http.StatusCreated, status)
	orgID := org["id"].(string)

	status, badge := s.post("/badges", map[string]any{
		"name":           "Survivor",
		"description":    "Outlives its issuer",
		"image":          "https://ephemeral.example.org/images/survivor.png",
		"criteria":       map[string]any{"narrative": "Exist"},
		"organizationId": orgID,
		"recipient":      map[string]any{"identity": "dev@example.com", "type": "email"},
	})
	s.Require().Equal(http.StatusCreated, status)
	externalID := badge["badgeId"].(string)

	req, err := http.NewRequest(http.MethodDelete, s.server.URL+"/organizations/"+orgID, nil)
	s.Require().NoError(err)
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	statusDel, _ := s.read(resp)
	s.Require().Equal(http.StatusOK, statusDel)

	// The badge still verifies with the snapshotted issuer.
	status, result := s.get("/badges/verify/" + externalID)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(true, result["valid"])
	issuer := result["badge"].(map[string]any)["issuer"].(map[string]any)
	s.Equal("Ephemeral Org", issuer["name"])

	// New issuance for the deleted organization fails.
	status, _ = s.post("/badges", map[string]any{
		"name":           "Too Late",
		"description":    "Issuer is gone",
		"image":          "https://ephemeral.example.org/images/too-late.png",
		"criteria":       map[string]any{"narrative": "Exist"},
		"organizationId": orgID,
		"recipient":      map[string]any{"identity": "dev@example.com", "type": "email"},
	})
	s.Equal(http.StatusNotFound, status)
}

func (s *LifecycleSuite) TestHealthEndpoint() {
	status, body := s.get("/health/live")
	s.Equal(http.StatusOK, status)
	s.Equal("alive", body["status"])
}
