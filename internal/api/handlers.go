package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"bridged-token-ledger/internal/domain"
)

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req transferRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Transfer(r.Context(), caller, to, amount, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type transferFromRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req transferFromRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.TransferFrom(r.Context(), caller, from, to, amount, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req approveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	spender, err := domain.ParseAddress(req.Spender)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Approve(r.Context(), caller, spender, amount, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type mintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req mintRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Mint(r.Context(), caller, to, amount, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type burnRequest struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req burnRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Burn(r.Context(), caller, from, amount, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type whitelistRequest struct {
	Account string `json:"account"`
}

func (s *Server) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req whitelistRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.AddToWhitelist(r.Context(), caller, account, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

func (s *Server) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	account, err := domain.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.RemoveFromWhitelist(r.Context(), caller, account, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type thresholdRequest struct {
	Threshold string `json:"threshold"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req thresholdRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	threshold, err := domain.ParseAmount(req.Threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	prev, err := s.engine.UpdateFeeWaiverThreshold(r.Context(), caller, threshold, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"threshold": domain.FormatAmount(threshold),
		"previous":  domain.FormatAmount(prev),
	})
}

type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

func (s *Server) handleRoleGrant(w http.ResponseWriter, r *http.Request) {
	s.handleRoleUpdate(w, r, s.engine.GrantRole)
}

func (s *Server) handleRoleRevoke(w http.ResponseWriter, r *http.Request) {
	s.handleRoleUpdate(w, r, s.engine.RevokeRole)
}

type roleUpdateFunc func(ctx context.Context, caller domain.Address, role domain.Role, account domain.Address, now int64) error

func (s *Server) handleRoleUpdate(w http.ResponseWriter, r *http.Request, update roleUpdateFunc) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req roleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	role, err := parseRole(req.Role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := update(r.Context(), caller, role, account, s.now()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

// parseRole rejects unknown role identifiers at the API boundary.
func parseRole(raw string) (domain.Role, error) {
	for _, role := range domain.KnownRoles {
		if string(role) == raw {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, raw)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var roles []string
	for _, role := range domain.KnownRoles {
		if s.engine.HasRole(role, account) {
			roles = append(roles, string(role))
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"address":     account.String(),
		"balance":     domain.FormatAmount(s.engine.BalanceOf(account)),
		"whitelisted": s.engine.IsWhitelisted(account),
		"roles":       roles,
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	token := s.engine.Token()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":                 token.Name,
		"symbol":               token.Symbol,
		"decimals":             token.Decimals,
		"total_supply":         domain.FormatAmount(s.engine.TotalSupply()),
		"max_supply":           domain.FormatAmount(s.engine.MaxSupply()),
		"fee_waiver_threshold": domain.FormatAmount(s.engine.FeeWaiverThreshold()),
	})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	spender, err := domain.ParseAddress(r.URL.Query().Get("spender"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"owner":     owner.String(),
		"spender":   spender.String(),
		"allowance": domain.FormatAmount(s.engine.Allowance(owner, spender)),
	})
}

// handleEvents serves a catch-up page of the journal: every event with
// sequence > since, straight from the durable store.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: malformed since %q", domain.ErrInvalidArgument, raw))
			return
		}
		since = parsed
	}

	last, err := s.eventStore.LastSequence(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if last <= since {
		s.writeJSON(w, http.StatusOK, map[string]any{"events": []any{}, "last_sequence": last})
		return
	}
	records, err := s.eventStore.GetBySequenceRange(r.Context(), since+1, last)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": records, "last_sequence": last})
}
