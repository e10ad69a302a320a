package server

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"
)

func TestPointQR(t *testing.T) {
	env := newTestEnv(t)
	g := env.createGame(t, "QR")
	req := at(plaza, "visible")
	req.Content = ContentDTO{QR: "GEOQUEST-PLAZA-01", Hint: "cathedral steps"}
	p := env.createPoint(t, g.ID, req)

	rec := env.do(t, http.MethodGet, "/api/points/"+p.ID+"/qr.png?size=128", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type = %q, want image/png", ct)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	if w := img.Bounds().Dx(); w != 128 {
		t.Errorf("width = %d, want 128", w)
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"size too small", "/api/points/" + p.ID + "/qr.png?size=10", http.StatusBadRequest},
		{"size not a number", "/api/points/" + p.ID + "/qr.png?size=big", http.StatusBadRequest},
		{"missing point", "/api/points/nope/qr.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do(t, http.MethodGet, tt.path, nil), tt.want)
		})
	}
}

func TestPointChainAndContent(t *testing.T) {
	env := newTestEnv(t)
	g := env.createGame(t, "Cadena")
	a := env.createPoint(t, g.ID, at(plaza, "sequential"))
	b := env.createPoint(t, g.ID, at(plaza, "sequential"))

	expectStatus(t, env.do(t, http.MethodPut, "/api/points/"+a.ID+"/chain", ChainRequest{NextPointID: b.ID}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPut, "/api/points/"+a.ID+"/content", ContentDTO{Symbol: "sun"}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/api/games/"+g.ID+"/points/"+b.ID+"/start", nil), http.StatusOK)

	rec := env.do(t, http.MethodGet, "/api/games/"+g.ID+"/points", nil)
	expectStatus(t, rec, http.StatusOK)
	byID := map[string]PointResponse{}
	for _, p := range decode[[]PointResponse](t, rec) {
		byID[p.ID] = p
	}

	got := byID[a.ID]
	if got.Chain == nil || got.Chain.NextPointID != b.ID || got.Content.Symbol != "sun" {
		t.Errorf("point a = %+v", got)
	}
	if got.IsActive || !byID[b.ID].IsActive {
		t.Errorf("start point not exclusive: a=%v b=%v", got.IsActive, byID[b.ID].IsActive)
	}

	expectStatus(t, env.do(t, http.MethodPut, "/api/points/"+a.ID+"/chain", ChainRequest{}), http.StatusOK)
	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID+"/points", nil)
	for _, p := range decode[[]PointResponse](t, rec) {
		if p.ID == a.ID && p.Chain != nil && p.Chain.NextPointID != "" {
			t.Errorf("chain not cleared: %+v", p.Chain)
		}
	}
}
