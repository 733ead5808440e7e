package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rentacar/core"
	"rentacar/crypto"
	"rentacar/native/rentacar"
)

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var env Envelope
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid envelope: %v", err))
		return
	}
	signers, err := env.Verify()
	if err != nil {
		writeError(w, err)
		return
	}
	build, ok := methods[env.Method]
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", ErrUnknownMethod, env.Method))
		return
	}
	apply, err := build(env.Params)
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.exec.Execute(r.Context(), core.Call{
		Method:  env.Method,
		Signers: signers,
		Apply:   apply,
	})
	if err != nil {
		s.logger.Debug("call rejected",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", env.Method),
			slog.Any("error", err))
		writeError(w, err)
		return
	}

	names := make([]string, 0, len(signers))
	for signer := range signers {
		names = append(names, crypto.FormatAccount(signer))
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, CallResponse{
		Method:  env.Method,
		Nonce:   env.Nonce,
		Signers: names,
		Status:  "committed",
	})
}

func (s *Server) handleMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Methods())
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	var resp AdminResponse
	err := s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		admin, err := engine.Admin()
		if err != nil {
			return err
		}
		asset, err := engine.PaymentAsset()
		if err != nil {
			return err
		}
		resp = AdminResponse{
			Admin:         crypto.FormatAccount(admin),
			PaymentAsset:  crypto.FormatAsset(asset),
			EscrowAccount: crypto.FormatAccount(engine.EscrowAccount()),
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminFee(w http.ResponseWriter, r *http.Request) {
	var resp AdminFeeResponse
	err := s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		fee, err := engine.AdminFee()
		resp.AdminFee = amountString(fee)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminFeesBalance(w http.ResponseWriter, r *http.Request) {
	var resp BalancesResponse
	err := s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		fees, err := engine.AdminFeesBalance()
		if err != nil {
			return err
		}
		contract, err := engine.ContractBalance()
		if err != nil {
			return err
		}
		resp = BalancesResponse{AdminFeesBalance: amountString(fees), ContractBalance: amountString(contract)}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	addr, err := parseAddress("address", raw)
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := s.exec.Balance(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountBalanceResponse{Address: crypto.FormatAccount(addr), Balance: amountString(balance)})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	nonce, err := s.exec.Nonce(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Address: crypto.FormatAccount(addr), Nonce: nonce})
}

func (s *Server) handleCars(w http.ResponseWriter, r *http.Request) {
	var resp []CarResponse
	err := s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		cars, err := engine.Cars()
		if err != nil {
			return err
		}
		resp = make([]CarResponse, 0, len(cars))
		for _, car := range cars {
			resp = append(resp, carResponse(car))
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCarInfo(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress("owner", chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	var resp CarInfoResponse
	err = s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		info, err := engine.CarInfo(owner)
		if err != nil {
			return err
		}
		resp = CarInfoResponse{
			Owner:               crypto.FormatAccount(owner),
			PricePerDay:         amountString(info.PricePerDay),
			AvailableToWithdraw: amountString(info.AvailableToWithdraw),
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCarStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress("owner", chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	var status rentacar.CarStatus
	err = s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		status, err = engine.CarStatus(owner)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CarStatusResponse{Owner: crypto.FormatAccount(owner), Status: status.String()})
}

func (s *Server) handleRental(w http.ResponseWriter, r *http.Request) {
	renter, err := parseAddress("renter", chi.URLParam(r, "renter"))
	if err != nil {
		writeError(w, err)
		return
	}
	owner, err := parseAddress("owner", chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	var rental *rentacar.RentalRecord
	err = s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		rental, err = engine.Rental(renter, owner)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RentalResponse{
		Renter:          crypto.FormatAccount(renter),
		Owner:           crypto.FormatAccount(owner),
		TotalDaysToRent: rental.TotalDaysToRent,
		Amount:          amountString(rental.Amount),
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var report *rentacar.AuditReport
	err := s.exec.Query(r.Context(), func(engine *rentacar.Engine) error {
		var err error
		report, err = engine.Audit()
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse(report))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "event log not configured"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	records, err := s.events.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		writeError(w, errors.Join(errors.New("rpc: list events"), err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}
