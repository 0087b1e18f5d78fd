package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/shared"
)

func TestProbe(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/api/v1/session" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("Authorization = %q", got)
			}
			_ = json.NewEncoder(w).Encode(Profile{
				Identity: authz.Identity{ID: 42},
				Roles:    []string{"customer"},
			})
		}))
		defer srv.Close()

		profile, err := NewClient(srv.URL, time.Second).Probe(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("Probe: %v", err)
		}
		if profile.Identity.ID != 42 {
			t.Fatalf("identity id = %d, want 42", profile.Identity.ID)
		}
	})

	t.Run("no session", func(t *testing.T) {
		for _, status := range []int{http.StatusNoContent, http.StatusUnauthorized} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			_, err := NewClient(srv.URL, time.Second).Probe(context.Background(), "")
			srv.Close()
			if !errors.Is(err, shared.ErrNoSession) {
				t.Fatalf("status %d: err = %v, want ErrNoSession", status, err)
			}
		}
	})

	t.Run("server fault is transport", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Probe(context.Background(), "")
		if !shared.IsTransport(err) {
			t.Fatalf("err = %v, want transport error", err)
		}
	})

	t.Run("unreachable host is transport", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", 100*time.Millisecond).Probe(context.Background(), "")
		if !shared.IsTransport(err) {
			t.Fatalf("err = %v, want transport error", err)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var creds Credentials
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Errorf("decode credentials: %v", err)
			}
			if creds.Email != "shopper@meridian.test" {
				t.Errorf("email = %q", creds.Email)
			}
			_ = json.NewEncoder(w).Encode(LoginResult{
				Token:   "tok-9",
				Profile: Profile{Identity: authz.Identity{ID: 42}},
			})
		}))
		defer srv.Close()

		result, err := NewClient(srv.URL, time.Second).Login(context.Background(), Credentials{
			Email:    "shopper@meridian.test",
			Password: "pw",
		})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if result.Token != "tok-9" {
			t.Fatalf("token = %q, want tok-9", result.Token)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Login(context.Background(), Credentials{})
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestLogoutToleratesUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	// an already-expired token is not an error worth surfacing
	if err := NewClient(srv.URL, time.Second).Logout(context.Background(), "stale"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
}

func TestUpsertCartLine(t *testing.T) {
	var got cartLinePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/cart/items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	size := int64(3)
	err := NewClient(srv.URL, time.Second).UpsertCartLine(context.Background(), "tok", gueststore.CartLine{
		ProductID: 10,
		SizeID:    &size,
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("UpsertCartLine: %v", err)
	}
	if got.ProductID != 10 || got.Quantity != 2 || got.SizeID == nil || *got.SizeID != 3 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestAddFavoriteConflictMapsToAlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).AddFavorite(context.Background(), "tok", gueststore.Favorite{ProductID: 7})
	if !errors.Is(err, shared.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}
