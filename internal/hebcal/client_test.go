package hebcal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Parallel()
	date := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/zmanim", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("cfg") != "json" || q.Get("date") != "2025-03-20" || q.Get("tzid") != "Asia/Jerusalem" ||
			q.Get("latitude") != "31.9515" || q.Get("longitude") != "34.8955" {
			http.Error(w, "bad query: "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2025-03-20","times":{"sunrise":"2025-03-20T05:47:00+02:00","sunset":"2025-03-20T17:54:00+02:00","broken":"yesterday"}}`))
	})
	mux.HandleFunc("/converter", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("g2h") != "1" || q.Get("date") != "2025-03-20" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"gy":2025,"gm":3,"gd":20,"hy":5785,"hm":"Adar","hd":20,"hebrew":"כ׳ בַּאֲדָר תשפ״ה"}`))
	})
	mux.HandleFunc("/broken/converter", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hy":5785}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	t.Run("zmanim", func(t *testing.T) {
		t.Parallel()
		resp, err := c.Zmanim(ctx, 31.9515, 34.8955, "Asia/Jerusalem", date)
		require.NoError(t, err)

		rise, err := resp.Time("sunrise")
		require.NoError(t, err)
		assert.Equal(t, "05:47", rise.Format("15:04"))

		_, err = resp.Time("chatzot")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = resp.Time("broken")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("converter", func(t *testing.T) {
		t.Parallel()
		hd, err := c.Convert(ctx, date)
		require.NoError(t, err)
		assert.Equal(t, 5785, hd.Year)
		assert.Equal(t, "Adar", hd.Month)
		assert.Equal(t, 20, hd.Day)
		assert.Equal(t, "כ׳ בַּאֲדָר תשפ״ה", hd.Hebrew)
	})

	t.Run("empty hebrew label", func(t *testing.T) {
		t.Parallel()
		broken := NewClient(srv.URL+"/broken", time.Second, nil)
		_, err := broken.Convert(ctx, date)
		assert.Error(t, err)
	})

	t.Run("non-200 status", func(t *testing.T) {
		t.Parallel()
		_, err := c.Zmanim(ctx, 0, 0, "UTC", date)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("default base url", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, DefaultBaseURL, NewClient("", time.Second, nil).baseURL)
	})
}
