package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// Path and header parameters for the reflector. Body fields come from the
// embedded request DTOs.
type (
	GamePath struct {
		GameID string `path:"gameID"`
	}
	PointPath struct {
		PointID string `path:"pointID"`
	}
	gamePointPath struct {
		GameID  string `path:"gameID"`
		PointID string `path:"pointID"`
	}
	PlayerPath struct {
		GameID   string `path:"gameID"`
		PlayerID string `path:"playerID"`
	}
	judgePath struct {
		JudgeID string `path:"judgeID"`
	}
	devicePath struct {
		DeviceID string `path:"deviceID"`
	}
	AdminHeader struct {
		AdminKey string `header:"X-Admin-Key" required:"true"`
	}
	qrQuery struct {
		PointID string `path:"pointID"`
		Size    int    `query:"size" minimum:"64" maximum:"1024"`
	}
	positionReq struct {
		PlayerPath
		Latitude  float64 `json:"latitude" minimum:"-90" maximum:"90"`
		Longitude float64 `json:"longitude" minimum:"-180" maximum:"180"`
	}
	createPointReq struct {
		GamePath
		CreatePointRequest
	}
	adminCreatePointReq struct {
		AdminHeader
		GamePath
		CreatePointRequest
	}
	metaReq struct {
		GamePath
		GameMetaRequest
	}
	adminMetaReq struct {
		AdminHeader
		GamePath
		GameMetaRequest
	}
	contentReq struct {
		PointPath
		ContentDTO
	}
	chainReq struct {
		PointPath
		ChainRequest
	}
	foundReq struct {
		PlayerPath
		FoundRequest
	}
	adminPointPatchReq struct {
		AdminHeader
		PointPath
		PointPatchRequest
	}
	adminAccountsReq struct {
		AdminHeader
		Role   string `path:"role" enum:"judges,players"`
		Status string `query:"status" enum:"pending,approved,rejected"`
	}
	adminAccountStatusReq struct {
		AdminHeader
		Role string `path:"role" enum:"judges,players"`
		ID   string `path:"id"`
		StatusRequest
	}
	adminGamesReq struct {
		AdminHeader
		Status string `query:"status" enum:"draft,in_review,approved,rejected"`
	}
	adminReviewReq struct {
		AdminHeader
		GamePath
		StatusRequest
	}
	adminPublishReq struct {
		AdminHeader
		GamePath
		PublishedRequest
	}
	adminGameReq struct {
		AdminHeader
		GamePath
	}
	adminPointReq struct {
		AdminHeader
		PointPath
	}
	summariesReq struct {
		PlayerID string `path:"playerID"`
	}
)

// HealthResponse maps each dependency to its status.
type HealthResponse struct {
	Status string                       `json:"status"`
	Checks map[string]map[string]string `json:"checks"`
}

type apiOperation struct {
	method      string
	path        string
	summary     string
	description string
	req         any
	resp        any
	status      int
	contentType string
	errors      []int
}

var (
	respNotFound  = []int{http.StatusNotFound}
	respInvalid   = []int{http.StatusBadRequest}
	respForbidden = []int{http.StatusForbidden, http.StatusBadRequest}
)

func apiOperations() []apiOperation {
	return []apiOperation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			description: "Returns the health status of backend dependencies.",
			resp: HealthResponse{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},

		// Games.
		{method: http.MethodPost, path: "/api/games", summary: "Create game",
			description: "Creates a draft game owned by a judge.",
			req: CreateGameRequest{}, resp: GameResponse{}, status: http.StatusCreated, errors: respInvalid},
		{method: http.MethodGet, path: "/api/games/active", summary: "Any active game",
			resp: GameResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodGet, path: "/api/games/{gameID}", summary: "Get game",
			req: GamePath{}, resp: GameResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodPatch, path: "/api/games/{gameID}", summary: "Update game metadata",
			description: "Patches name, title, description, area or minimum points. Omitted fields are kept.",
			req: metaReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respInvalid},
		{method: http.MethodDelete, path: "/api/games/{gameID}", summary: "Delete game",
			description: "Deletes the game and its control points.",
			req: GamePath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/games/{gameID}/activate", summary: "Activate game",
			description: "Starts the game and makes the head of the sequential chain the only active sequential point.",
			req: GamePath{}, resp: OKResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodPost, path: "/api/games/{gameID}/deactivate", summary: "Deactivate game",
			req: GamePath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/games/{gameID}/submit", summary: "Submit for review",
			req: GamePath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/games/{gameID}/events", summary: "Game event stream",
			description: "Server-Sent Events for point_found, point_unlocked, game_completed and game_activated.",
			req: GamePath{}, status: http.StatusOK, contentType: "text/event-stream"},
		{method: http.MethodGet, path: "/api/judges/{judgeID}/games", summary: "Judge's games",
			req: judgePath{}, resp: []GameResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/judges/{judgeID}/games/active", summary: "Judge's active game",
			req: judgePath{}, resp: GameResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodGet, path: "/api/store/games", summary: "Published games",
			description: "Approved and published games with public-safe fields only.",
			resp: []ListingResponse{}, status: http.StatusOK},

		// Control points.
		{method: http.MethodPost, path: "/api/games/{gameID}/points", summary: "Create control point",
			description: "With origin set, the position is pulled inside the placement radius around it.",
			req: createPointReq{}, resp: PointResponse{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/games/{gameID}/points", summary: "List control points",
			req: GamePath{}, resp: []PointResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/games/{gameID}/points/count", summary: "Count control points",
			req: GamePath{}, resp: CountResponse{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/games/{gameID}/points/{pointID}/start", summary: "Set chain start",
			req: gamePointPath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodPut, path: "/api/points/{pointID}/content", summary: "Update point content",
			req: contentReq{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodPut, path: "/api/points/{pointID}/chain", summary: "Update point chain",
			description: "Sets the successor unlocked by this point. An empty nextPointId clears it.",
			req: chainReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respInvalid},
		{method: http.MethodPost, path: "/api/points/{pointID}/activate", summary: "Activate point",
			req: PointPath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodDelete, path: "/api/points/{pointID}", summary: "Delete point",
			description: "Deletes the point and prunes it from every player's found set.",
			req: PointPath{}, resp: OKResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/points/{pointID}/qr.png", summary: "Point QR code",
			req: qrQuery{}, status: http.StatusOK, contentType: "image/png", errors: []int{http.StatusBadRequest, http.StatusNotFound}},

		// Player progress.
		{method: http.MethodPost, path: "/api/games/{gameID}/players/{playerID}/start", summary: "Start game",
			description: "Creates the player's progress, or only moves the position when already started.",
			req: positionReq{}, resp: ProgressResponse{}, status: http.StatusOK, errors: respInvalid},
		{method: http.MethodPost, path: "/api/games/{gameID}/players/{playerID}/position", summary: "Report position",
			req: positionReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respInvalid},
		{method: http.MethodPost, path: "/api/games/{gameID}/players/{playerID}/evaluate", summary: "Evaluate proximity",
			description: "Stores the position and credits at most one active point within the proximity radius.",
			req: positionReq{}, resp: EvaluateResponse{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/games/{gameID}/players/{playerID}/found", summary: "Mark point found",
			req: foundReq{}, resp: FoundResponse{}, status: http.StatusOK, errors: []int{http.StatusConflict}},
		{method: http.MethodGet, path: "/api/games/{gameID}/players/{playerID}/progress", summary: "Player progress",
			req: PlayerPath{}, resp: ProgressResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodGet, path: "/api/games/{gameID}/players/{playerID}/points", summary: "Visible points",
			description: "Active points plus the ones the player already found.",
			req: PlayerPath{}, resp: []PointResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/games/{gameID}/players/{playerID}/ws", summary: "Position stream",
			description: "WebSocket: send {latitude, longitude} frames, receive evaluation and event frames.",
			req: PlayerPath{}, resp: StreamMessage{}, status: http.StatusSwitchingProtocols},
		{method: http.MethodGet, path: "/api/players/{playerID}/summaries", summary: "Player summaries",
			req: summariesReq{}, resp: SummariesResponse{}, status: http.StatusOK},

		// Accounts.
		{method: http.MethodPost, path: "/api/judges/register", summary: "Register judge",
			req: RegisterRequest{}, resp: AccountResponse{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/judges/login", summary: "Judge login",
			req: LoginRequest{}, resp: LoginResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/judges/device/{deviceID}", summary: "Judge by device",
			req: devicePath{}, resp: AccountResponse{}, status: http.StatusOK, errors: respNotFound},
		{method: http.MethodPost, path: "/api/players/register", summary: "Register player",
			req: RegisterRequest{}, resp: AccountResponse{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/players/login", summary: "Player login",
			req: LoginRequest{}, resp: LoginResponse{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/players/device/{deviceID}", summary: "Player by device",
			req: devicePath{}, resp: AccountResponse{}, status: http.StatusOK, errors: respNotFound},

		// Moderation.
		{method: http.MethodGet, path: "/api/admin/{role}", summary: "List accounts",
			req: adminAccountsReq{}, resp: []AccountResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPut, path: "/api/admin/{role}/{id}/status", summary: "Set account status",
			req: adminAccountStatusReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodGet, path: "/api/admin/games", summary: "Review queue",
			req: adminGamesReq{}, resp: []GameResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPatch, path: "/api/admin/games/{gameID}", summary: "Moderator metadata update",
			req: adminMetaReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPut, path: "/api/admin/games/{gameID}/review", summary: "Set review status",
			req: adminReviewReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPut, path: "/api/admin/games/{gameID}/published", summary: "Set published",
			req: adminPublishReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodGet, path: "/api/admin/games/{gameID}/points", summary: "Moderator point list",
			req: adminGameReq{}, resp: []PointResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPost, path: "/api/admin/games/{gameID}/points", summary: "Moderator point create",
			req: adminCreatePointReq{}, resp: PointResponse{}, status: http.StatusCreated, errors: respForbidden},
		{method: http.MethodGet, path: "/api/admin/games/{gameID}/live", summary: "Live map",
			req: adminGameReq{}, resp: LiveResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodPatch, path: "/api/admin/points/{pointID}", summary: "Moderator point patch",
			req: adminPointPatchReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
		{method: http.MethodDelete, path: "/api/admin/points/{pointID}", summary: "Moderator point delete",
			req: adminPointReq{}, resp: OKResponse{}, status: http.StatusOK, errors: respForbidden},
	}
}

func newOpenAPISpec() (*openapi3.Spec, error) {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for GeoQuest location-based scavenger hunts.")

	for _, o := range apiOperations() {
		oc, err := r.NewOperationContext(o.method, o.path)
		if err != nil {
			return nil, err
		}
		oc.SetSummary(o.summary)
		if o.description != "" {
			oc.SetDescription(o.description)
		}
		if o.req != nil {
			oc.AddReqStructure(o.req)
		}
		if o.contentType != "" {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(o.status), openapi.WithContentType(o.contentType))
		} else {
			oc.AddRespStructure(o.resp, openapi.WithHTTPStatus(o.status))
		}
		for _, status := range o.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		if err := r.AddOperation(oc); err != nil {
			return nil, err
		}
	}
	return r.Spec, nil
}

func handleOpenAPI() http.HandlerFunc {
	spec, err := newOpenAPISpec()
	var data []byte
	if err == nil {
		data, err = json.MarshalIndent(spec, "", "  ")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			writeError(w, http.StatusInternalServerError, "building openapi spec: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
