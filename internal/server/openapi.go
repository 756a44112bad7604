package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "PointCap API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for live capture-the-control-point matches.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/points/{pointID}/capture
	postCapture, _ := r.NewOperationContext(http.MethodPost, "/api/points/{pointID}/capture")
	postCapture.SetSummary("Capture a control point")
	postCapture.SetDescription("Attempt a capture. The acting user must be on the game roster, the game active, and the numeric presence code correct. Capturing a point already owned by the acting user is rejected.")
	postCapture.AddReqStructure(CaptureRequest{})
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postCapture.AddRespStructure(CaptureResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postCapture)

	// GET /api/games/{gameID}/scoreboard
	getScoreboard, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/scoreboard")
	getScoreboard.SetSummary("Compute scoreboard")
	getScoreboard.SetDescription("Folds the game's event log into time-weighted per-user and per-team scores.")
	getScoreboard.AddRespStructure(ScoreboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getScoreboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getScoreboard)

	// GET /api/games/{gameID}/scoreboard/saved
	getSaved, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/scoreboard/saved")
	getSaved.SetSummary("Last computed scoreboard")
	getSaved.SetDescription("Serves the last persisted snapshot without a full recomputation.")
	getSaved.AddRespStructure(ScoreboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSaved.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSaved)

	// GET /api/games/{gameID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of captures and scoreboard refreshes for a game.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/games")
	listGames.SetSummary("List games")
	listGames.AddRespStructure([]GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listGames)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Schedule a game")
	createGame.AddReqStructure(GameRequest{})
	createGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createGame)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Returns a game with its control points and roster.")
	getGame.AddRespStructure(GameDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// DELETE /api/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.SetDescription("Deletes a game and everything it owns (points, roster, events, scores, annotations).")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGame)

	// POST /api/games/{gameID}/start
	startGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/start")
	startGame.SetSummary("Start game")
	startGame.SetDescription("Moves a scheduled game to active.")
	startGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	startGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	startGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(startGame)

	// POST /api/games/{gameID}/finish
	finishGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/finish")
	finishGame.SetSummary("Finish game")
	finishGame.SetDescription("Moves an active game to finished, closing every open holding interval with game_end events.")
	finishGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	finishGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	finishGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(finishGame)

	// POST /api/games/{gameID}/reset
	resetGame, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/reset")
	resetGame.SetSummary("Reset game")
	resetGame.SetDescription("Clears events, scores, and ownership, returning the game to scheduled.")
	resetGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	resetGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(resetGame)

	// GET /api/games/{gameID}/points
	listPoints, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/points")
	listPoints.SetSummary("List control points")
	listPoints.AddRespStructure([]PointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listPoints.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listPoints)

	// POST /api/games/{gameID}/points/toggle
	togglePoint, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/points/toggle")
	togglePoint.SetSummary("Toggle control point marker")
	togglePoint.SetDescription("Idempotently creates or deletes a control point at a grid cell.")
	togglePoint.AddReqStructure(ToggleRequest{})
	togglePoint.AddRespStructure([]PointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	togglePoint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(togglePoint)

	// DELETE /api/points/{pointID}
	deletePoint, _ := r.NewOperationContext(http.MethodDelete, "/api/points/{pointID}")
	deletePoint.SetSummary("Delete control point")
	deletePoint.SetDescription("Removes a control point; its events are cascaded away.")
	deletePoint.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deletePoint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deletePoint)

	// GET /api/games/{gameID}/participants
	listParts, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/participants")
	listParts.SetSummary("List roster")
	listParts.AddRespStructure([]ParticipantResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listParts.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listParts)

	// POST /api/games/{gameID}/participants
	addPart, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/participants")
	addPart.SetSummary("Add user to roster")
	addPart.SetDescription("Idempotently adds a known user to the game roster.")
	addPart.AddReqStructure(AddParticipantRequest{})
	addPart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusCreated))
	addPart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	addPart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(addPart)

	// DELETE /api/games/{gameID}/participants/{userID}
	removePart, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}/participants/{userID}")
	removePart.SetSummary("Remove user from roster")
	removePart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	removePart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(removePart)

	// GET /api/games/{gameID}/annotations
	listNotes, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/annotations")
	listNotes.SetSummary("List map annotations")
	listNotes.AddRespStructure([]AnnotationResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listNotes.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listNotes)

	// POST /api/games/{gameID}/annotations
	createNote, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/annotations")
	createNote.SetSummary("Create map annotation")
	createNote.AddReqStructure(AnnotationRequest{})
	createNote.AddRespStructure(AnnotationResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createNote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createNote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(createNote)

	// DELETE /api/annotations/{id}
	deleteNote, _ := r.NewOperationContext(http.MethodDelete, "/api/annotations/{id}")
	deleteNote.SetSummary("Delete map annotation")
	deleteNote.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteNote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteNote)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
