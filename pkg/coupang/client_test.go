package coupang

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, apiPrefix+"/products/search", r.URL.Path)
		assert.Equal(t, "커피머신", r.URL.Query().Get("keyword"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "AF123", r.URL.Query().Get("subId"))
		assert.Contains(t, r.Header.Get("Authorization"), "CEA algorithm=HmacSHA256")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rCode":"0","data":{"productData":[{"productId":1,"productName":"커피머신","productPrice":99000}]}}`))
	}))
	defer srv.Close()

	client := NewClient("ak", "sk", WithBaseURL(srv.URL), WithSubID("AF123"))

	body, err := client.Search(context.Background(), "커피머신", 20)
	require.NoError(t, err)

	var listings []map[string]any
	require.NoError(t, json.Unmarshal(body, &listings), "search unwraps to the listing array")
	require.Len(t, listings, 1)
	assert.Equal(t, "커피머신", listings[0]["productName"])
}

func TestSearch_EmptyKeyword(t *testing.T) {
	client := NewClient("ak", "sk")
	_, err := client.Search(context.Background(), "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyword")
}

func TestBestCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/products/bestcategories/1016", r.URL.Path)
		_, _ = w.Write([]byte(`{"rCode":"0","data":[{"productId":2,"productName":"노트북"}]}`))
	}))
	defer srv.Close()

	client := NewClient("ak", "sk", WithBaseURL(srv.URL))

	body, err := client.BestCategory(context.Background(), "1016", 10)
	require.NoError(t, err)
	assert.Contains(t, string(body), "노트북")
}

func TestDeepLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiPrefix+"/deeplink", r.URL.Path)

		reqBody, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(reqBody), "coupangUrls")

		_, _ = w.Write([]byte(`{"rCode":"0","data":[
			{"originalUrl":"https://www.coupang.com/vp/products/1","shortenUrl":"https://link.coupang.com/a/x1","landingUrl":"https://landing.coupang.com/1"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("ak", "sk", WithBaseURL(srv.URL))

	links, err := client.DeepLink(context.Background(), []string{"https://www.coupang.com/vp/products/1"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://link.coupang.com/a/x1", links[0].ShortenURL)
	assert.Equal(t, "https://link.coupang.com/a/x1", links[0].BestURL())
}

func TestDeepLink_EmptyInput(t *testing.T) {
	client := NewClient("ak", "sk")
	_, err := client.DeepLink(context.Background(), nil)
	assert.Error(t, err)
}

func TestDo_ErrorStatusSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"rCode":"401","message":"Invalid signature"}`))
	}))
	defer srv.Close()

	client := NewClient("ak", "bad-secret", WithBaseURL(srv.URL))

	_, err := client.Search(context.Background(), "키보드", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid signature")
}

func TestAuthorization_SignatureIsReproducible(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	c := &httpClient{
		accessKey: "ak",
		secretKey: "sk",
		now:       func() time.Time { return fixed },
	}

	header := c.authorization(http.MethodGet, apiPrefix+"/products/search", "keyword=test")

	re := regexp.MustCompile(`CEA algorithm=HmacSHA256, access-key=ak, signed-date=(\S+), signature=(\S+)`)
	m := re.FindStringSubmatch(header)
	require.Len(t, m, 3)
	assert.Equal(t, "260203T040506Z", m[1])

	mac := hmac.New(sha256.New, []byte("sk"))
	mac.Write([]byte("260203T040506Z" + http.MethodGet + apiPrefix + "/products/search" + "keyword=test"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), m[2])
}
