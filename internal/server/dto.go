package server

import (
	"time"

	"github.com/playperu/geoquest/internal/accounts"
	"github.com/playperu/geoquest/internal/games"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/points"
	"github.com/playperu/geoquest/internal/progress"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OKResponse acknowledges commands that have no payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

var acknowledged = OKResponse{OK: true}

type AreaDTO struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

func toArea(a geoquest.Area) *AreaDTO {
	if a.IsZero() {
		return nil
	}
	return &AreaDTO{Country: a.Country, Region: a.Region, City: a.City}
}

func (a *AreaDTO) domain() *geoquest.Area {
	if a == nil {
		return nil
	}
	return &geoquest.Area{Country: a.Country, Region: a.Region, City: a.City}
}

type GameResponse struct {
	ID           string    `json:"id"`
	JudgeID      string    `json:"judgeId"`
	Name         string    `json:"name"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Area         *AreaDTO  `json:"area,omitempty"`
	IsActive     bool      `json:"isActive"`
	MinPoints    int       `json:"minPoints"`
	ReviewStatus string    `json:"reviewStatus"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toGame(g geoquest.Game) GameResponse {
	return GameResponse{
		ID:           g.ID,
		JudgeID:      g.JudgeID,
		Name:         g.Name,
		Title:        g.Title,
		Description:  g.Description,
		Area:         toArea(g.Area),
		IsActive:     g.IsActive,
		MinPoints:    g.MinPoints,
		ReviewStatus: string(g.ReviewStatus),
		Published:    g.Published,
		CreatedAt:    g.CreatedAt,
	}
}

func toGames(gs []geoquest.Game) []GameResponse {
	out := make([]GameResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, toGame(g))
	}
	return out
}

type CreateGameRequest struct {
	JudgeID string `json:"judgeId"`
	Name    string `json:"name"`
}

// GameMetaRequest patches descriptive fields. Omitted fields stay unchanged.
type GameMetaRequest struct {
	Name        *string  `json:"name,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Area        *AreaDTO `json:"area,omitempty"`
	MinPoints   *int     `json:"minPoints,omitempty"`
}

func (m GameMetaRequest) domain() geoquest.GameMeta {
	return geoquest.GameMeta{
		Name:        m.Name,
		Title:       m.Title,
		Description: m.Description,
		Area:        m.Area.domain(),
		MinPoints:   m.MinPoints,
	}
}

type ListingResponse struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Area        *AreaDTO `json:"area,omitempty"`
	IsActive    bool     `json:"isActive"`
	PointCount  int      `json:"pointCount"`
	OwnerID     string   `json:"ownerId"`
}

func toListings(ls []games.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, ListingResponse{
			ID:          l.ID,
			Slug:        l.Slug,
			Title:       l.Title,
			Description: l.Description,
			Area:        toArea(l.Area),
			IsActive:    l.IsActive,
			PointCount:  l.PointCount,
			OwnerID:     l.OwnerID,
		})
	}
	return out
}

type ContentDTO struct {
	QR     string `json:"qr,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

func (c ContentDTO) domain() geoquest.Content {
	return geoquest.Content{QR: c.QR, Hint: c.Hint, Symbol: c.Symbol}
}

type ChainDTO struct {
	ID          string `json:"id,omitempty"`
	Order       int    `json:"order"`
	NextPointID string `json:"nextPointId,omitempty"`
}

func (c *ChainDTO) domain() *geoquest.Chain {
	if c == nil {
		return nil
	}
	return &geoquest.Chain{ID: c.ID, Order: c.Order, NextPointID: c.NextPointID}
}

type PointResponse struct {
	ID        string     `json:"id"`
	GameID    string     `json:"gameId"`
	Type      string     `json:"type"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Content   ContentDTO `json:"content"`
	Chain     *ChainDTO  `json:"chain,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toPoint(p geoquest.ControlPoint) PointResponse {
	out := PointResponse{
		ID:        p.ID,
		GameID:    p.GameID,
		Type:      string(p.Type),
		Latitude:  p.Position.Lat,
		Longitude: p.Position.Lon,
		Content:   ContentDTO{QR: p.Content.QR, Hint: p.Content.Hint, Symbol: p.Content.Symbol},
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
	if p.Chain != nil {
		out.Chain = &ChainDTO{ID: p.Chain.ID, Order: p.Chain.Order, NextPointID: p.Chain.NextPointID}
	}
	return out
}

func toPoints(ps []geoquest.ControlPoint) []PointResponse {
	out := make([]PointResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPoint(p))
	}
	return out
}

// CreatePointRequest places a point. With Origin set the position is pulled
// inside the placement radius around it.
type CreatePointRequest struct {
	Type      string     `json:"type"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Content   ContentDTO `json:"content"`
	Chain     *ChainDTO  `json:"chain,omitempty"`
	Origin    *geo.Point `json:"origin,omitempty"`
	// IsActive is honored on the admin route only.
	IsActive *bool `json:"isActive,omitempty"`
}

func (r CreatePointRequest) domain() points.NewPoint {
	return points.NewPoint{
		Type:     geoquest.PointType(r.Type),
		Position: geo.Point{Lat: r.Latitude, Lon: r.Longitude},
		Content:  r.Content.domain(),
		Chain:    r.Chain.domain(),
	}
}

// PointPatchRequest is the moderator's partial point update. Latitude and
// longitude must be given together.
type PointPatchRequest struct {
	Type      *string     `json:"type,omitempty"`
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
	Content   *ContentDTO `json:"content,omitempty"`
	Chain     *ChainDTO   `json:"chain,omitempty"`
	IsActive  *bool       `json:"isActive,omitempty"`
}

func (r PointPatchRequest) domain() (geoquest.PointPatch, error) {
	var patch geoquest.PointPatch
	if r.Type != nil {
		t := geoquest.PointType(*r.Type)
		patch.Type = &t
	}
	switch {
	case r.Latitude != nil && r.Longitude != nil:
		patch.Position = &geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}
	case r.Latitude != nil || r.Longitude != nil:
		return geoquest.PointPatch{}, geoquest.Invalidf("latitude and longitude must be set together")
	}
	if r.Content != nil {
		c := r.Content.domain()
		patch.Content = &c
	}
	patch.Chain = r.Chain.domain()
	patch.IsActive = r.IsActive
	return patch, nil
}

type ChainRequest struct {
	// NextPointID empty clears the link.
	NextPointID string `json:"nextPointId"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ProgressResponse struct {
	ID              string     `json:"id"`
	GameID          string     `json:"gameId"`
	PlayerID        string     `json:"playerId"`
	FoundPoints     []string   `json:"foundPoints"`
	CurrentPosition *geo.Point `json:"currentPosition,omitempty"`
	IsCompleted     bool       `json:"isCompleted"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

func toProgress(p geoquest.PlayerProgress) ProgressResponse {
	found := p.FoundPoints
	if found == nil {
		found = []string{}
	}
	return ProgressResponse{
		ID:              p.ID,
		GameID:          p.GameID,
		PlayerID:        p.PlayerID,
		FoundPoints:     found,
		CurrentPosition: p.CurrentPosition,
		IsCompleted:     p.IsCompleted,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
	}
}

// EvaluateResponse reports the point credited by one position report, if any.
type EvaluateResponse struct {
	Found      *PointResponse    `json:"found,omitempty"`
	FoundCount int               `json:"foundCount"`
	Progress   *ProgressResponse `json:"progress,omitempty"`
}

func toEvaluation(ev progress.Evaluation) EvaluateResponse {
	out := EvaluateResponse{FoundCount: ev.FoundCount}
	if ev.Found != nil {
		p := toPoint(*ev.Found)
		out.Found = &p
	}
	if ev.Progress.ID != "" {
		p := toProgress(ev.Progress)
		out.Progress = &p
	}
	return out
}

type FoundRequest struct {
	PointID string `json:"pointId"`
}

type FoundResponse struct {
	FoundCount int `json:"foundCount"`
}

type SummaryResponse struct {
	ProgressID  string     `json:"progressId"`
	GameID      string     `json:"gameId"`
	FoundPoints []string   `json:"foundPoints"`
	FoundCount  int        `json:"foundCount"`
	TotalPoints int        `json:"totalPoints"`
	IsCompleted bool       `json:"isCompleted"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	GameTitle   string     `json:"gameTitle"`
	GameArea    *AreaDTO   `json:"gameArea,omitempty"`
}

type SummariesResponse struct {
	Active    []SummaryResponse `json:"active"`
	Completed []SummaryResponse `json:"completed"`
}

func toSummaries(s progress.Summaries) SummariesResponse {
	conv := func(in []geoquest.Summary) []SummaryResponse {
		out := make([]SummaryResponse, 0, len(in))
		for _, s := range in {
			r := SummaryResponse{
				ProgressID:  s.ProgressID,
				GameID:      s.GameID,
				FoundPoints: s.FoundPoints,
				FoundCount:  s.FoundCount,
				TotalPoints: s.TotalPoints,
				IsCompleted: s.IsCompleted,
				StartedAt:   s.StartedAt,
				CompletedAt: s.CompletedAt,
				GameTitle:   s.GameTitle,
			}
			if s.GameArea != nil {
				r.GameArea = toArea(*s.GameArea)
			}
			if r.FoundPoints == nil {
				r.FoundPoints = []string{}
			}
			out = append(out, r)
		}
		return out
	}
	return SummariesResponse{Active: conv(s.Active), Completed: conv(s.Completed)}
}

type LivePoint struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsActive  bool    `json:"isActive"`
}

type LivePlayer struct {
	PlayerID  string  `json:"playerId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type LiveResponse struct {
	Points  []LivePoint  `json:"points"`
	Players []LivePlayer `json:"players"`
}

func toLive(s geoquest.LiveSnapshot) LiveResponse {
	out := LiveResponse{
		Points:  make([]LivePoint, 0, len(s.Points)),
		Players: make([]LivePlayer, 0, len(s.Players)),
	}
	for _, p := range s.Points {
		out.Points = append(out.Points, LivePoint{
			ID: p.ID, Type: string(p.Type), Latitude: p.Position.Lat, Longitude: p.Position.Lon, IsActive: p.IsActive,
		})
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, LivePlayer{PlayerID: p.PlayerID, Latitude: p.Position.Lat, Longitude: p.Position.Lon})
	}
	return out
}

type RegisterRequest struct {
	DeviceID     string `json:"deviceId"`
	PublicNick   string `json:"publicNick"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"passwordHash"`
}

func (r RegisterRequest) domain() accounts.Registration {
	return accounts.Registration{
		DeviceID:     r.DeviceID,
		PublicNick:   r.PublicNick,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
	}
}

type LoginRequest struct {
	PublicNick   string `json:"publicNick"`
	PasswordHash string `json:"passwordHash"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	CanPlay   bool   `json:"canPlay"`
	Status    string `json:"status,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func toLogin(r accounts.LoginResult) LoginResponse {
	return LoginResponse{
		Success:   r.Success,
		CanPlay:   r.CanPlay(),
		Status:    string(r.Status),
		AccountID: r.AccountID,
		DeviceID:  r.DeviceID,
		Error:     r.Error,
	}
}

// AccountResponse never carries the password hash.
type AccountResponse struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	DeviceID   string    `json:"deviceId"`
	PublicNick string    `json:"publicNick"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toAccount(a geoquest.Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Role:       string(a.Role),
		DeviceID:   a.DeviceID,
		PublicNick: a.PublicNick,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Email:      a.Email,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
	}
}

type StatusRequest struct {
	Status string `json:"status"`
}

type PublishedRequest struct {
	Published bool `json:"published"`
}
