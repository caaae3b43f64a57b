package gateway

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/telemetry"
	"opencodeweb/pkg/utils"
)

// handleStream relays the upstream event stream to the client, bound to the
// caller's workspace. The relay forwards bytes as they arrive and flushes
// after every read so events are never held back by buffering.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, wsPath, err := g.clientInfo(r)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	upstreamPath := "/event"
	if r.URL.Query().Get("scope") == "global" || strings.HasSuffix(r.URL.Path, "/global/event") {
		upstreamPath = "/global/event"
	}

	// client query params are not forwarded; only the bound directory goes up
	params := url.Values{}
	params.Set("directory", wsPath)
	target := g.upstream.String() + upstreamPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header = cloneHeaders(r.Header)
	req.Header.Set("x-user-id", userID)
	req.Header.Set("x-workspace", wsPath)
	req.Header.Set("x-opencode-directory", wsPath)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.streamClient.Do(req)
	if err != nil {
		telemetry.ProxyError()
		logger.Error("stream_upstream_failed", "upstream", upstreamPath, "user", userID, "error", err)
		utils.JSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		copyResponseHeaders(w, resp)
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	telemetry.StreamOpened()
	defer telemetry.StreamClosed()
	logger.Info("stream_opened", "upstream", upstreamPath, "user", userID)

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Debug("stream_read_ended", "user", userID, "error", err)
			}
			break
		}
	}
	logger.Info("stream_closed", "upstream", upstreamPath, "user", userID)
}
