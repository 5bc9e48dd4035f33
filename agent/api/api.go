// Package api serves the device registry, on-demand polls and the live
// snapshot feed over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"printmonitor/agent/poller"
	"printmonitor/agent/storage"
	commonstorage "printmonitor/common/storage"
)

// Scheduler is the part of poller.Scheduler the API drives.
type Scheduler interface {
	PollDevice(ctx context.Context, id string) (commonstorage.Snapshot, error)
	PollAllDevices(ctx context.Context) ([]poller.Result, error)
	Status() poller.SchedulerStatus
}

// Prober polls an address that is not registered.
type Prober interface {
	Poll(ctx context.Context, address string, previous *commonstorage.Snapshot) commonstorage.Snapshot
}

// Feed carries registry changes to live clients.
type Feed interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	PublishRemoval(deviceID string)
	ClientCount() int
}

// Forgetter drops per-device state when a device is removed.
type Forgetter interface {
	ForgetDevice(deviceID string)
}

// Logger interface for API operations
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}

// Options wires the API's collaborators. Store and Scheduler are required.
type Options struct {
	Store     storage.DeviceStore
	Scheduler Scheduler
	Prober    Prober
	Feed      Feed
	Forgetter Forgetter
	Metrics   http.Handler
	Logger    Logger
	Version   string

	// PollTimeout bounds one on-demand poll request.
	PollTimeout time.Duration
}

// API holds the HTTP handlers.
type API struct {
	opts Options
}

// NewAPI returns an API; unset timeouts get defaults.
func NewAPI(opts Options) *API {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 2 * time.Minute
	}
	return &API{opts: opts}
}

// RegisterRoutes mounts every endpoint on mux.
func (api *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/devices", api.handleListDevices)
	mux.HandleFunc("POST /api/devices", api.handleAddDevice)
	mux.HandleFunc("POST /api/devices/poll", api.handlePollAll)
	mux.HandleFunc("GET /api/devices/{id}", api.handleGetDevice)
	mux.HandleFunc("PATCH /api/devices/{id}", api.handleUpdateDevice)
	mux.HandleFunc("DELETE /api/devices/{id}", api.handleRemoveDevice)
	mux.HandleFunc("POST /api/devices/{id}/poll", api.handlePollDevice)
	mux.HandleFunc("GET /api/devices/{id}/history", api.handleHistory)
	mux.HandleFunc("GET /api/probe", api.handleProbe)
	mux.HandleFunc("GET /api/status", api.handleStatus)
	mux.HandleFunc("GET /healthz", api.handleHealth)
	if api.opts.Feed != nil {
		mux.HandleFunc("GET /ws", api.opts.Feed.ServeWS)
	}
	if api.opts.Metrics != nil {
		mux.Handle("GET /metrics", api.opts.Metrics)
	}
}

// Handler returns a mux with every route registered.
func (api *API) Handler() http.Handler {
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	return mux
}

type addDeviceRequest struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateDeviceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type pollResult struct {
	DeviceID string                 `json:"device_id"`
	Address  string                 `json:"address"`
	Snapshot commonstorage.Snapshot `json:"snapshot"`
}

func (api *API) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := api.opts.Store.ListDevices(r.Context())
	if err != nil {
		api.internalError(w, "list devices", err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleAddDevice registers the device and runs its first poll so the
// response already carries a status.
func (api *API) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	dev, err := api.opts.Store.AddDevice(r.Context(), req.Address, req.Name, req.Description)
	switch {
	case errors.Is(err, storage.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		api.internalError(w, "add device", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.opts.PollTimeout)
	defer cancel()
	snap, err := api.opts.Scheduler.PollDevice(ctx, dev.ID)
	if err != nil {
		// The device is registered; the scheduler will retry the poll.
		api.log().Warn("First poll of new device failed", "id", dev.ID, "address", dev.Address, "error", err)
	} else {
		dev.Status = &snap
	}
	writeJSON(w, http.StatusCreated, dev)
}

func (api *API) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := api.opts.Store.GetDevice(r.Context(), r.PathValue("id"))
	if err != nil {
		api.storeError(w, "get device", err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleUpdateDevice changes name and description; omitted fields keep
// their current values.
func (api *API) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id := r.PathValue("id")
	current, err := api.opts.Store.GetDevice(r.Context(), id)
	if err != nil {
		api.storeError(w, "get device", err)
		return
	}
	name, desc := current.Name, current.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		desc = *req.Description
	}

	dev, err := api.opts.Store.UpdateInfo(r.Context(), id, name, desc)
	if err != nil {
		api.storeError(w, "update device", err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (api *API) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := api.opts.Store.RemoveDevice(r.Context(), id); err != nil {
		api.storeError(w, "remove device", err)
		return
	}
	if api.opts.Forgetter != nil {
		api.opts.Forgetter.ForgetDevice(id)
	}
	if api.opts.Feed != nil {
		api.opts.Feed.PublishRemoval(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) handlePollDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), api.opts.PollTimeout)
	defer cancel()

	snap, err := api.opts.Scheduler.PollDevice(ctx, r.PathValue("id"))
	if err != nil {
		api.storeError(w, "poll device", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePollAll refreshes every device. Results come back in registry
// order; storage failures for individual devices are reported alongside.
func (api *API) handlePollAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), api.opts.PollTimeout)
	defer cancel()

	results, err := api.opts.Scheduler.PollAllDevices(ctx)
	if err != nil && results == nil {
		api.internalError(w, "poll all", err)
		return
	}
	if ctx.Err() != nil {
		writeError(w, http.StatusServiceUnavailable, "poll sweep did not finish in time")
		return
	}

	out := make([]pollResult, 0, len(results))
	for _, res := range results {
		out = append(out, pollResult{DeviceID: res.Target.ID, Address: res.Target.Address, Snapshot: res.Snapshot})
	}
	if err != nil {
		api.log().Warn("Poll sweep stored with errors", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   err.Error(),
			"results": out,
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (api *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 1000)
	}

	hist, err := api.opts.Store.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		api.storeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// handleProbe polls an arbitrary address without registering or storing it.
func (api *API) handleProbe(w http.ResponseWriter, r *http.Request) {
	if api.opts.Prober == nil {
		writeError(w, http.StatusNotImplemented, "probing is not enabled")
		return
	}
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "address query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), api.opts.PollTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, api.opts.Prober.Poll(ctx, address, nil))
}

func (api *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"version":   api.opts.Version,
		"scheduler": api.opts.Scheduler.Status(),
	}
	if api.opts.Feed != nil {
		status["ws_clients"] = api.opts.Feed.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := api.opts.Store.ListDevices(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (api *API) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	api.internalError(w, op, err)
}

func (api *API) internalError(w http.ResponseWriter, op string, err error) {
	api.log().Error("API request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func (api *API) log() Logger {
	if api.opts.Logger != nil {
		return api.opts.Logger
	}
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
