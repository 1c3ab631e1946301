/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/elva/bridge"
	"github.com/Seednode/elva/pasur"
)

// humanReadableSize formats n bytes with SI units.
func humanReadableSize(n int) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, r *http.Request, status int, v any, errs chan<- error) {
	startTime := time.Now()

	data, err := json.Marshal(v)
	if err != nil {
		errs <- err
		http.Error(w, "encoding failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	written, err := w.Write(data)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: %s %s (%s) to %s in %s",
		r.Method,
		r.URL.Path,
		humanReadableSize(written),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error, errs chan<- error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadCard):
		status = http.StatusBadRequest
	case errors.Is(err, pasur.ErrActionInactive):
		status = http.StatusConflict
	case errors.Is(err, bridge.ErrNotConnected), errors.Is(err, bridge.ErrSendBlocked), errors.Is(err, errScreenClosed):
		status = http.StatusServiceUnavailable
	}

	writeJSON(cfg, w, r, status, errorResponse{Error: err.Error()}, errs)
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

// openMatch navigates the lobby by opening a game screen for the match the
// url points at.
func openMatch(sm *screenManager) pasur.Navigator {
	return pasur.NavigatorFunc(func(url string) error {
		id, err := matchIDFromURL(url)
		if err != nil {
			return err
		}
		sm.get(id)

		return nil
	})
}

func matchIndex(p httprouter.Params) (int, bool) {
	index, err := strconv.Atoi(p.ByName("index"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

func serveMenu(cfg *Config, menu *menuScreen, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		writeJSON(cfg, w, r, http.StatusOK, menu.view(), errs)
	}
}

func serveOpenMatch(cfg *Config, menu *menuScreen, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		index, ok := matchIndex(p)
		if !ok {
			http.NotFound(w, r)
			return
		}

		var gameURL string
		err := menu.do(r.Context(), func(m *pasur.MenuViewModel) error {
			match, ok := m.Match(index)
			if !ok {
				return errMatchNotFound
			}
			gameURL = match.GameURL

			return m.SetLocation(gameURL)
		})
		if errors.Is(err, errMatchNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		id, _ := matchIDFromURL(gameURL)
		http.Redirect(w, r, cfg.prefix+"/game/"+id, http.StatusSeeOther)
	}
}

var errMatchNotFound = errors.New("match not found")

// serveMatchQR renders the browser link of a lobby match as a PNG QR code,
// so it can be opened on a phone.
func serveMatchQR(cfg *Config, menu *menuScreen, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		index, ok := matchIndex(p)
		if !ok {
			http.NotFound(w, r)
			return
		}

		matches := menu.view().Matches
		if index >= len(matches) {
			http.NotFound(w, r)
			return
		}

		const qrSize = 320
		png, err := qrcode.Encode(cfg.pageURL(matches[index].GameURL), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func registerMenu(cfg *Config, menu *menuScreen, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/", serveMenu(cfg, menu, errs))
	mux.POST(cfg.prefix+"/match/:index/open", serveOpenMatch(cfg, menu, errs))
	mux.GET(cfg.prefix+"/match/:index/qr", serveMatchQR(cfg, menu, errs))
}

// serveGame answers only for matches opened through the lobby, so a request
// for an arbitrary id never dials the server.
func serveGame(cfg *Config, sm *screenManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		s, ok := sm.lookup(p.ByName("match"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, s.view(), errs)
	}
}

// serveIntent runs act against the match's view model. A successful intent
// answers 202 with the unchanged view; its effect arrives with the next
// snapshot.
func serveIntent(cfg *Config, sm *screenManager, errs chan<- error, act func(*pasur.GameViewModel, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		s, ok := sm.lookup(p.ByName("match"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		err := s.do(r.Context(), func(g *pasur.GameViewModel) error {
			return act(g, p)
		})
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusAccepted, s.view(), errs)
	}
}

var errBadCard = errors.New("card id must be an integer")

func cardParam(p httprouter.Params) (int, error) {
	id, err := strconv.Atoi(p.ByName("card"))
	if err != nil {
		return 0, errBadCard
	}
	return id, nil
}

func registerGames(cfg *Config, sm *screenManager, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/game/:match", serveGame(cfg, sm, errs))

	mux.POST(cfg.prefix+"/game/:match/deal", serveIntent(cfg, sm, errs, func(g *pasur.GameViewModel, _ httprouter.Params) error {
		return g.DealCards()
	}))
	mux.POST(cfg.prefix+"/game/:match/count", serveIntent(cfg, sm, errs, func(g *pasur.GameViewModel, _ httprouter.Params) error {
		return g.CountPoints()
	}))
	mux.POST(cfg.prefix+"/game/:match/next", serveIntent(cfg, sm, errs, func(g *pasur.GameViewModel, _ httprouter.Params) error {
		return g.NextGame()
	}))
	mux.POST(cfg.prefix+"/game/:match/play/:card", serveIntent(cfg, sm, errs, func(g *pasur.GameViewModel, p httprouter.Params) error {
		id, err := cardParam(p)
		if err != nil {
			return err
		}
		return g.PlayCard(id)
	}))
	mux.POST(cfg.prefix+"/game/:match/select/:card", serveIntent(cfg, sm, errs, func(g *pasur.GameViewModel, p httprouter.Params) error {
		id, err := cardParam(p)
		if err != nil {
			return err
		}
		g.ToggleSelection(id)
		return nil
	}))
}
