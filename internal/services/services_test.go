package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *APIService {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewAPIService(server.URL, nil)
}

func TestAuthService(t *testing.T) {
	t.Run("Login Sends Email Or Username", func(t *testing.T) {
		tests := []struct {
			identifier string
			field      string
		}{
			{"ada@example.com", "email"},
			{"ada", "username"},
		}
		for _, tt := range tests {
			t.Run(tt.field, func(t *testing.T) {
				api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/auth/login" {
						t.Errorf("expected /auth/login, got %s", r.URL.Path)
					}
					body := decodeBody(t, r)
					if body[tt.field] != tt.identifier {
						t.Errorf("expected %s=%s, got %v", tt.field, tt.identifier, body)
					}
					w.Write([]byte(`{"success":true,"data":{"token":"t","refreshToken":"r","user":{"id":"u1"}}}`))
				})

				res, err := NewAuthService(api).Login(context.Background(), tt.identifier, "pw")
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if res.RefreshToken != "r" {
					t.Errorf("expected refresh token r, got %q", res.RefreshToken)
				}
			})
		}
	})

	t.Run("Login Without Token", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1"}}}`))
		})

		_, err := NewAuthService(api).Login(context.Background(), "ada", "pw")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Register", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			if r.URL.Path != "/auth/register" || body["name"] != "Ada" {
				t.Errorf("unexpected request %s %v", r.URL.Path, body)
			}
			w.Write([]byte(`{"success":true,"token":"t","user":{"id":"u1","name":"Ada"}}`))
		})

		res, err := NewAuthService(api).Register(context.Background(), "Ada", "ada@example.com", "pw")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.User.DisplayName() != "Ada" {
			t.Errorf("expected Ada, got %s", res.User.DisplayName())
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if decodeBody(t, r)["refreshToken"] != "r1" {
				t.Error("expected refresh token in body")
			}
			w.Write([]byte(`{"success":true,"data":{"accessToken":"t2"}}`))
		})

		res, err := NewAuthService(api).Refresh(context.Background(), "r1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Access() != "t2" || res.RefreshToken != "" {
			t.Errorf("unexpected refresh result %+v", res)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/logout" {
				t.Errorf("expected /auth/logout, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"success":true}`))
		})

		if err := NewAuthService(api).Logout(context.Background(), "r1"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestPersonaService(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			if decodeBody(t, r)["prompt"] != "a cat" {
				t.Error("expected prompt in body")
			}
			w.Write([]byte(`{"success":true,"data":{"_id":"42"}}`))
		})

		job, err := NewPersonaService(api).Create(context.Background(), models.CreatePersonaRequest{Prompt: "a cat"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.ID != "42" || job.Status != models.JobPending {
			t.Errorf("expected pending job 42, got %+v", job)
		}
	})

	t.Run("Create Rejects Empty Prompt", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected no request")
		})

		_, err := NewPersonaService(api).Create(context.Background(), models.CreatePersonaRequest{Prompt: "  "})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Status", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/jobs/42" {
				t.Errorf("expected /jobs/42, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":{"status":"completed","videoUrl":"v.mp4"}}`))
		})

		job, err := NewPersonaService(api).Status(context.Background(), "42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.ID != "42" || job.ResultVideoURL != "v.mp4" || !job.Status.Terminal() {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("Status Not Found", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Job not found"}`))
		})

		_, err := NewPersonaService(api).Status(context.Background(), "nope")
		if !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("List And Delete", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.Write([]byte(`{"success":true,"data":[{"id":"1"},{"_id":"2"}]}`))
			case http.MethodDelete:
				if r.URL.Path != "/jobs/a%2Fb" && r.URL.RawPath != "/jobs/a%2Fb" {
					t.Errorf("expected escaped id, got %s", r.URL.RawPath)
				}
				w.Write([]byte(`{"success":true}`))
			}
		})

		svc := NewPersonaService(api)
		jobs, err := svc.List(context.Background())
		if err != nil || len(jobs) != 2 || jobs[1].ID != "2" {
			t.Fatalf("unexpected list %+v %v", jobs, err)
		}
		if err := svc.Delete(context.Background(), "a/b"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestSocialService(t *testing.T) {
	t.Run("With Authoritative State", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/social/like/p1" {
				t.Errorf("expected /social/like/p1, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":{"liked":true,"likes":7}}`))
		})

		state, err := NewSocialService(api).Like(context.Background(), "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state == nil || *state != (models.LikeState{Liked: true, Count: 7}) {
			t.Errorf("unexpected state %+v", state)
		}
	})

	t.Run("Without Payload", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		})

		state, err := NewSocialService(api).Like(context.Background(), "p1")
		if err != nil || state != nil {
			t.Errorf("expected nil state and no error, got %+v %v", state, err)
		}
	})
}

func TestNotificationService(t *testing.T) {
	t.Run("List Uses Server Unread Count", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"unread":3,"data":[{"_id":"n1","type":"like","read":false,"sender":{"name":"Bo"},"dreamId":{"title":"Gold"}}]}`))
		})

		items, unread, err := NewNotificationService(api).List(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if unread != 3 || len(items) != 1 || items[0].Sender != "Bo" || items[0].SubjectTitle != "Gold" {
			t.Errorf("unexpected result %+v %d", items, unread)
		}
	})

	t.Run("List Counts Unread When Missing", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":[{"_id":"n1","read":false},{"_id":"n2","read":true}]}`))
		})

		_, unread, err := NewNotificationService(api).List(context.Background())
		if err != nil || unread != 1 {
			t.Errorf("expected 1 unread, got %d %v", unread, err)
		}
	})

	t.Run("MarkRead", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut || r.URL.Path != "/notifications/read" {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			w.Write([]byte(`{"success":true}`))
		})

		if err := NewNotificationService(api).MarkRead(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestExtractService(t *testing.T) {
	t.Run("Analyze", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if decodeBody(t, r)["url"] != "https://shop.example.com/bag" {
				t.Error("expected url in body")
			}
			w.Write([]byte(`{"success":true,"data":{"title":"Bag","images":["i.jpg"],"price":120,"currency":"USD","domain":"shop.example.com"}}`))
		})

		p, err := NewExtractService(api).Analyze(context.Background(), "https://shop.example.com/bag")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		req := RequestFromProduct(*p)
		if req.SourceImageURL != "i.jpg" || req.Price != 120 || !strings.Contains(req.Prompt, "Bag") {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.Contains(req.Prompt, fallbackDetails) {
			t.Error("expected fallback details without a description")
		}
	})

	t.Run("Rejects Non-HTTP URL", func(t *testing.T) {
		_, err := NewExtractService(NewAPIService("", nil)).Analyze(context.Background(), "ftp://x")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDNAService(t *testing.T) {
	t.Run("Generate", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			if r.Method != http.MethodPost || r.URL.Path != "/dna/generate" || body["userId"] != "u1" {
				t.Errorf("unexpected request %s %s %v", r.Method, r.URL.Path, body)
			}
			answers, _ := body["answers"].([]any)
			if len(answers) != 3 || answers[0] != "neon tech" {
				t.Errorf("expected normalized answers, got %v", body["answers"])
			}
			w.Write([]byte(`{"success":true,"data":{"id":"u1","name":"Ada","dnaCard":{"persona":"Cyber Monk","palette":["#0ff","#111"],"tribe":"Glitch"}}}`))
		})

		user, err := NewDNAService(api).Generate(context.Background(), "u1", []string{" Neon Tech", "vintage", "ART"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.DNA == nil || user.DNA.Persona != "Cyber Monk" || user.DNA.Tribe != "Glitch" {
			t.Errorf("unexpected DNA card %+v", user.DNA)
		}
	})

	t.Run("Rejects Unknown Answers Locally", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected no request")
		})

		dna := NewDNAService(api)
		if _, err := dna.Generate(context.Background(), "u1", []string{"neon tech", "vintage"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for too few answers, got %v", err)
		}
		if _, err := dna.Generate(context.Background(), "u1", []string{"neon tech", "laser", "art"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for unknown answer, got %v", err)
		}
		if _, err := dna.Generate(context.Background(), "", []string{"neon tech", "tech", "art"}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Response Without Card", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{"id":"u1"}}`))
		})

		if _, err := NewDNAService(api).Generate(context.Background(), "u1", []string{"nature calm", "classic", "order"}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestPublicService(t *testing.T) {
	t.Run("Explore Populates Creators Without Credential", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/public/explore" {
				t.Errorf("expected /public/explore, got %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "" {
				t.Errorf("expected no credential, got %q", auth)
			}
			w.Write([]byte(`{"success":true,"data":[
				{"_id":"p1","prompt":"a cat","status":"completed","userId":{"_id":"u1","name":"Ada","dnaCard":{"persona":"Cyber Monk","palette":["#0ff"],"tribe":"Glitch"}}},
				{"_id":"p2","prompt":"a dog","status":"completed","userId":"u2"}
			]}`))
		})
		api.SetAuthorizer(&stubAuthorizer{token: "t1"})

		items, err := NewPublicService(api).Explore(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 personas, got %d", len(items))
		}
		if c := items[0].Creator; c == nil || c.Name != "Ada" || c.ID != "u1" || items[0].UserID != "u1" {
			t.Errorf("expected populated creator, got %+v", items[0])
		}
		if items[1].Creator != nil || items[1].UserID != "u2" {
			t.Errorf("expected plain owner id, got %+v", items[1])
		}
	})

	t.Run("Trending", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/public/trending" {
				t.Errorf("expected /public/trending, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":[{"_id":"p1","likes":9,"userId":null}]}`))
		})

		items, err := NewPublicService(api).Trending(context.Background())
		if err != nil || len(items) != 1 || items[0].Likes != 9 {
			t.Errorf("unexpected trending %+v %v", items, err)
		}
	})

	t.Run("Profile", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/public/profile/ada" {
				t.Errorf("expected /public/profile/ada, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":{"profile":{"name":"Ada","vibeSeed":["dreamer"]},"dreams":[{"_id":"p1","prompt":"a cat"}]}}`))
		})

		profile, err := NewPublicService(api).Profile(context.Background(), "ada")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.Name != "Ada" || profile.Vibe() != "dreamer" || len(profile.Personas) != 1 {
			t.Errorf("unexpected profile %+v", profile)
		}
	})

	t.Run("Profile Not Found", func(t *testing.T) {
		api := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"error":"User not found"}`))
		})

		_, err := NewPublicService(api).Profile(context.Background(), "nobody")
		var apiErr *shared.APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "User not found" {
			t.Errorf("expected server message, got %v", err)
		}
	})
}
