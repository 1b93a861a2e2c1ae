package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/feed-farm/engine/internal/engine"
	"github.com/feed-farm/engine/internal/types"
)

type addPoolRequest struct {
	Caller           string `json:"caller"`
	DepositAssetID   string `json:"deposit_asset_id"`
	AllocationWeight string `json:"allocation_weight"`
	ExitFeeBp        uint32 `json:"exit_fee_bp"`
	Height           int64  `json:"height"`
}

type setPoolRequest struct {
	Caller           string `json:"caller"`
	AllocationWeight string `json:"allocation_weight"`
	ExitFeeBp        uint32 `json:"exit_fee_bp"`
	Height           int64  `json:"height"`
}

type depositRequest struct {
	Account  string `json:"account"`
	PoolID   uint64 `json:"pool_id"`
	Amount   string `json:"amount"`
	Referrer string `json:"referrer,omitempty"`
	Height   int64  `json:"height"`
}

type withdrawRequest struct {
	Account string `json:"account"`
	PoolID  uint64 `json:"pool_id"`
	Amount  string `json:"amount"`
	Height  int64  `json:"height"`
}

type emergencyWithdrawRequest struct {
	Account string `json:"account"`
	PoolID  uint64 `json:"pool_id"`
}

type emissionRateRequest struct {
	Caller        string `json:"caller"`
	RewardPerTick string `json:"reward_per_tick"`
	Height        int64  `json:"height"`
}

type referralBpRequest struct {
	Caller      string `json:"caller"`
	BasisPoints uint32 `json:"basis_points"`
}

type rotateRecipientRequest struct {
	Caller     string `json:"caller"`
	NewAccount string `json:"new_account"`
}

func (ws *WebServer) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parseAmount parses a decimal string into a non-negative sdkmath.Int.
func parseAmount(raw string) (sdkmath.Int, bool) {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok || amount.IsNegative() {
		return sdkmath.Int{}, false
	}
	return amount, true
}

func poolIDFromPath(r *http.Request) (types.PoolID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return types.PoolID(id), true
}

// handleListPools returns every registered pool
func (ws *WebServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pools": ws.engine.PoolSnapshots(),
	})
}

// handleAddPool registers a new pool for a deposit asset
func (ws *WebServer) handleAddPool(w http.ResponseWriter, r *http.Request) {
	var req addPoolRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	weight, ok := parseAmount(req.AllocationWeight)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid allocation_weight")
		return
	}

	if ws.ledgers == nil {
		ws.writeErrorResponse(w, http.StatusInternalServerError, "no deposit ledger resolver configured")
		return
	}
	ledger, err := ws.ledgers(req.DepositAssetID)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "unknown deposit asset: "+req.DepositAssetID)
		return
	}

	id, err := ws.engine.AddPool(req.Caller, ledger, weight, req.ExitFeeBp, req.Height)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	snapshot, err := ws.engine.PoolSnapshot(id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, snapshot)
}

// handleGetPool returns a single pool by id
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := poolIDFromPath(r)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid pool id")
		return
	}

	snapshot, err := ws.engine.PoolSnapshot(id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleSetPool changes a pool's allocation weight and exit fee
func (ws *WebServer) handleSetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := poolIDFromPath(r)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid pool id")
		return
	}

	var req setPoolRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	weight, ok := parseAmount(req.AllocationWeight)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid allocation_weight")
		return
	}

	if err := ws.engine.SetPool(req.Caller, id, weight, req.ExitFeeBp, req.Height); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	snapshot, err := ws.engine.PoolSnapshot(id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleFindPoolByAsset resolves a deposit asset to its pool id
func (ws *WebServer) handleFindPoolByAsset(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]

	id, err := ws.engine.FindPoolByDepositAsset(asset)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"deposit_asset_id": asset,
		"pool_id":          id,
	})
}

// handleDeposit stakes deposit tokens into a pool
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid amount")
		return
	}

	err := ws.engine.Deposit(req.Account, types.PoolID(req.PoolID), amount, req.Referrer, req.Height)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writePosition(w, types.PoolID(req.PoolID), req.Account)
}

// handleWithdraw unstakes deposit tokens, charging the pool exit fee
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid amount")
		return
	}

	err := ws.engine.Withdraw(req.Account, types.PoolID(req.PoolID), amount, req.Height)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writePosition(w, types.PoolID(req.PoolID), req.Account)
}

// handleEmergencyWithdraw returns the full stake, forfeiting rewards
func (ws *WebServer) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req emergencyWithdrawRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	if err := ws.engine.EmergencyWithdraw(req.Account, types.PoolID(req.PoolID)); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": req.PoolID,
		"account": req.Account,
		"status":  "withdrawn",
	})
}

// handlePendingReward returns the accrued but unpaid reward at a height
func (ws *WebServer) handlePendingReward(w http.ResponseWriter, r *http.Request) {
	id, ok := poolIDFromPath(r)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid pool id")
		return
	}
	account := mux.Vars(r)["account"]

	height, err := strconv.ParseInt(r.URL.Query().Get("height"), 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "missing or invalid height query parameter")
		return
	}

	pending, err := ws.engine.PendingReward(id, account, height)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": id,
		"account": account,
		"height":  height,
		"pending": pending.String(),
	})
}

// handleGetPosition returns an account's position in a pool
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := poolIDFromPath(r)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid pool id")
		return
	}
	ws.writePosition(w, id, mux.Vars(r)["account"])
}

func (ws *WebServer) writePosition(w http.ResponseWriter, id types.PoolID, account string) {
	snapshot, err := ws.engine.PositionSnapshot(id, account)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetReferral returns the referrer bound to an account, if any
func (ws *WebServer) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	referrer := ws.engine.GetReferral(account)
	ws.writeJSONResponse(w, http.StatusOK, types.Referral{
		Account:  account,
		Referrer: referrer,
	})
}

// handleGetSchedule returns the emission schedule and supply status
func (ws *WebServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := ws.engine.Schedule()
	issued, cap := ws.engine.RewardSupply()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"reward_per_tick":         schedule.RewardPerTick.String(),
		"start_height":            schedule.StartHeight,
		"rate_change_cooldown":    schedule.RateChangeCooldown,
		"last_rate_change_height": schedule.LastRateChangeHeight,
		"referral_bp":             ws.engine.ReferralBasisPoints(),
		"recipients":              ws.engine.Recipients(),
		"reward_issued":           issued.String(),
		"reward_cap":              cap.String(),
	})
}

// handleSetEmissionRate changes the reward emission rate (admin only)
func (ws *WebServer) handleSetEmissionRate(w http.ResponseWriter, r *http.Request) {
	var req emissionRateRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	rate, ok := parseAmount(req.RewardPerTick)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid reward_per_tick")
		return
	}

	if err := ws.engine.SetEmissionRate(req.Caller, rate, req.Height); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"reward_per_tick": rate.String(),
		"height":          req.Height,
	})
}

// handleSetReferralBp changes the referral commission rate (admin only)
func (ws *WebServer) handleSetReferralBp(w http.ResponseWriter, r *http.Request) {
	var req referralBpRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	if err := ws.engine.SetReferralBasisPoints(req.Caller, req.BasisPoints); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"referral_bp": req.BasisPoints,
	})
}

// handleRotateRecipient hands a recipient role to a new account
func (ws *WebServer) handleRotateRecipient(w http.ResponseWriter, r *http.Request) {
	role := engine.RoleName(mux.Vars(r)["role"])

	var req rotateRecipientRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	if err := ws.engine.RotateRecipient(req.Caller, role, req.NewAccount); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	if !ws.persistState(w) {
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"role":       role,
		"recipients": ws.engine.Recipients(),
	})
}
