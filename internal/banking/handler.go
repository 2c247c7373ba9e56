package banking

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/identity"
	"github.com/congo-pay/banka/internal/ledger"
)

// Handler exposes banking endpoints. Routes must run behind the JWT
// middleware, which stores the session on the request context.
type Handler struct {
	service *Service
}

// NewHandler constructs a banking HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func session(c *fiber.Ctx) access.Session {
	return access.FromContext(c.UserContext())
}

func fail(err error) error {
	return fiber.NewError(bankerr.Status(err), err.Error())
}

func parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// AccountResponse is the JSON view of an account.
type AccountResponse struct {
	ID                    string     `json:"id"`
	OwnerID               string     `json:"owner_id"`
	Kind                  string     `json:"kind"`
	Type                  string     `json:"type"`
	Balance               string     `json:"balance"`
	CreatedAt             time.Time  `json:"created_at"`
	InterestRate          string     `json:"interest_rate,omitempty"`
	DailyWithdrawalLimit  string     `json:"daily_withdrawal_limit,omitempty"`
	SingleWithdrawalLimit string     `json:"single_withdrawal_limit,omitempty"`
	CreditLimit           string     `json:"credit_limit,omitempty"`
	AvailableCredit       string     `json:"available_credit,omitempty"`
	Debt                  string     `json:"debt,omitempty"`
	GracePeriodEnd        *time.Time `json:"grace_period_end,omitempty"`
	LinkedSavingsID       string     `json:"linked_savings_id,omitempty"`
}

func toAccountResponse(a *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		Kind:            string(a.Kind),
		Type:            a.Kind.DisplayName(),
		Balance:         a.Balance.StringFixed(2),
		CreatedAt:       a.CreatedAt,
		LinkedSavingsID: a.LinkedSavingsID,
	}
	if a.Kind.TracksHistory() {
		resp.InterestRate = a.InterestRate.String()
	}
	if a.Kind.IsSavings() {
		resp.DailyWithdrawalLimit = a.DailyWithdrawalLimit.StringFixed(2)
	}
	if a.Kind == account.KindStudentSavings {
		resp.SingleWithdrawalLimit = a.SingleWithdrawalLimit.StringFixed(2)
	}
	if a.Kind == account.KindCredit {
		resp.CreditLimit = a.CreditLimit.StringFixed(2)
		resp.AvailableCredit = a.AvailableCredit().StringFixed(2)
		resp.Debt = a.Debt().StringFixed(2)
		grace := a.GracePeriodEnd
		resp.GracePeriodEnd = &grace
	}
	return resp
}

func toAccountResponses(accounts []*account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

type openAccountRequest struct {
	OwnerID               string           `json:"owner_id"`
	Kind                  string           `json:"kind"`
	InitialDeposit        decimal.Decimal  `json:"initial_deposit"`
	InterestRate          *decimal.Decimal `json:"interest_rate"`
	DailyWithdrawalLimit  *decimal.Decimal `json:"daily_withdrawal_limit"`
	SingleWithdrawalLimit *decimal.Decimal `json:"single_withdrawal_limit"`
	CreditLimit           *decimal.Decimal `json:"credit_limit"`
	GracePeriodDays       *int             `json:"grace_period_days"`
}

// OpenAccount creates an account.
func (h *Handler) OpenAccount(c *fiber.Ctx) error {
	var req openAccountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	a, err := h.service.OpenAccount(c.UserContext(), session(c), OpenAccountInput{
		OwnerID:               req.OwnerID,
		Kind:                  account.Kind(req.Kind),
		InitialDeposit:        req.InitialDeposit,
		InterestRate:          req.InterestRate,
		DailyWithdrawalLimit:  req.DailyWithdrawalLimit,
		SingleWithdrawalLimit: req.SingleWithdrawalLimit,
		CreditLimit:           req.CreditLimit,
		GracePeriodDays:       req.GracePeriodDays,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(a))
}

// ListAccounts lists the caller's accounts, or another owner's via ?owner_id=.
func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.service.ListAccounts(c.UserContext(), session(c), c.Query("owner_id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(toAccountResponses(accounts))
}

// ListAllAccounts lists every account for staff.
func (h *Handler) ListAllAccounts(c *fiber.Ctx) error {
	accounts, err := h.service.ListAllAccounts(c.UserContext(), session(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(toAccountResponses(accounts))
}

// GetAccount returns one account.
func (h *Handler) GetAccount(c *fiber.Ctx) error {
	a, err := h.service.GetAccount(c.UserContext(), session(c), c.Params("id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(toAccountResponse(a))
}

// CloseAccount deletes an account with a zero balance.
func (h *Handler) CloseAccount(c *fiber.Ctx) error {
	if err := h.service.CloseAccount(c.UserContext(), session(c), c.Params("id")); err != nil {
		return fail(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type transactionResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	Balance   string    `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// Transactions returns the account's ledger records, newest first. ?limit=
// caps the number returned.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	seq, err := h.service.History(c.UserContext(), session(c), c.Params("id"))
	if err != nil {
		return fail(err)
	}
	limit := c.QueryInt("limit", 0)

	out := []transactionResponse{}
	for tx, err := range seq {
		if err != nil {
			return fail(err)
		}
		out = append(out, toTransactionResponse(tx))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return c.JSON(out)
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		Kind:      tx.Kind,
		Amount:    tx.Amount.StringFixed(2),
		Balance:   tx.Balance.StringFixed(2),
		Timestamp: tx.Timestamp,
	}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// Deposit adds money to an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	balance, err := h.service.Deposit(c.UserContext(), session(c), c.Params("id"), req.Amount)
	if err != nil {
		return fail(err)
	}
	return c.JSON(balanceResponse{AccountID: c.Params("id"), Balance: balance.StringFixed(2)})
}

// Withdraw takes money out of an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	balance, err := h.service.Withdraw(c.UserContext(), session(c), c.Params("id"), req.Amount)
	if err != nil {
		return fail(err)
	}
	return c.JSON(balanceResponse{AccountID: c.Params("id"), Balance: balance.StringFixed(2)})
}

type interestResponse struct {
	AccountID string `json:"account_id"`
	Interest  string `json:"interest"`
	Balance   string `json:"balance"`
	Posted    bool   `json:"posted"`
}

func toInterestResponse(res InterestResult) interestResponse {
	return interestResponse{
		AccountID: res.AccountID,
		Interest:  res.Interest.StringFixed(2),
		Balance:   res.Balance.StringFixed(2),
		Posted:    res.Posted,
	}
}

// AccrueInterest runs the monthly interest on one account.
func (h *Handler) AccrueInterest(c *fiber.Ctx) error {
	res, err := h.service.AccrueInterest(c.UserContext(), session(c), c.Params("id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(toInterestResponse(res))
}

// InterestRun accrues interest on every account.
func (h *Handler) InterestRun(c *fiber.Ctx) error {
	run, err := h.service.AccrueAllInterest(c.UserContext(), session(c))
	if err != nil {
		return fail(err)
	}
	results := make([]interestResponse, 0, len(run.Results))
	for _, res := range run.Results {
		results = append(results, toInterestResponse(res))
	}
	return c.JSON(fiber.Map{
		"processed": len(run.Results),
		"posted":    run.Posted,
		"total":     run.Total.StringFixed(2),
		"results":   results,
	})
}

type linkRequest struct {
	SavingsID string `json:"savings_id"`
}

// LinkSavings links a savings account to the checking account in the path.
func (h *Handler) LinkSavings(c *fiber.Ctx) error {
	var req linkRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := h.service.LinkSavings(c.UserContext(), session(c), c.Params("id"), req.SavingsID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"checking_id": c.Params("id"), "savings_id": req.SavingsID})
}

type transferResponse struct {
	FromID      string `json:"from_id"`
	ToID        string `json:"to_id"`
	Amount      string `json:"amount"`
	FromBalance string `json:"from_balance"`
	ToBalance   string `json:"to_balance"`
}

// TransferToSavings moves money from a checking account to its linked savings.
func (h *Handler) TransferToSavings(c *fiber.Ctx) error {
	var req amountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	ctx, sess := c.UserContext(), session(c)
	res, err := h.service.TransferToSavings(ctx, sess, c.Params("id"), req.Amount)
	if err != nil {
		return fail(err)
	}
	checking, err := h.service.GetAccount(ctx, sess, c.Params("id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(transferResponse{
		FromID:      checking.ID,
		ToID:        checking.LinkedSavingsID,
		Amount:      req.Amount.StringFixed(2),
		FromBalance: res.FromBalance.StringFixed(2),
		ToBalance:   res.ToBalance.StringFixed(2),
	})
}

type transferRequest struct {
	FromID string          `json:"from_id"`
	ToID   string          `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Transfer moves money between any two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	res, err := h.service.Transfer(c.UserContext(), session(c), req.FromID, req.ToID, req.Amount)
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(transferResponse{
		FromID:      req.FromID,
		ToID:        req.ToID,
		Amount:      req.Amount.StringFixed(2),
		FromBalance: res.FromBalance.StringFixed(2),
		ToBalance:   res.ToBalance.StringFixed(2),
	})
}

// Me returns the caller's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	sess := session(c)
	if !sess.LoggedIn() {
		return fail(bankerr.ErrNotAuthenticated)
	}
	user, err := h.service.users.FindByID(c.UserContext(), sess.UserID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(identity.ToResponse(user))
}

// ListUsers lists every user for staff.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext(), session(c))
	if err != nil {
		return fail(err)
	}
	out := make([]identity.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, identity.ToResponse(u))
	}
	return c.JSON(out)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser registers a user with an explicit role.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.Role == "" {
		req.Role = string(identity.RoleClient)
	}
	user, err := h.service.RegisterUser(c.UserContext(), session(c),
		identity.Credentials{Username: req.Username, Password: req.Password}, identity.Role(req.Role))
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(identity.ToResponse(user))
}

type roleRequest struct {
	Role string `json:"role"`
}

// ChangeRole updates a user's role.
func (h *Handler) ChangeRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	user, err := h.service.ChangeRole(c.UserContext(), session(c), c.Params("username"), identity.Role(req.Role))
	if err != nil {
		return fail(err)
	}
	return c.JSON(identity.ToResponse(user))
}

// DeleteUser removes a user.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteUser(c.UserContext(), session(c), c.Params("username")); err != nil {
		return fail(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type clockResponse struct {
	Now       time.Time `json:"now"`
	Simulated bool      `json:"simulated"`
}

func toClockResponse(st ClockState) clockResponse {
	return clockResponse{Now: st.Now, Simulated: st.Simulated}
}

// Clock reports the service time.
func (h *Handler) Clock(c *fiber.Ctx) error {
	return c.JSON(toClockResponse(h.service.Now()))
}

type simulateRequest struct {
	Start time.Time `json:"start"`
}

// SimulateTime enables simulated time.
func (h *Handler) SimulateTime(c *fiber.Ctx) error {
	var req simulateRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.Start.IsZero() {
		return fiber.NewError(http.StatusBadRequest, "start is required")
	}
	st, err := h.service.SimulateTime(session(c), req.Start.UTC())
	if err != nil {
		return fail(err)
	}
	return c.JSON(toClockResponse(st))
}

type advanceRequest struct {
	Days int `json:"days"`
}

// AdvanceTime moves simulated time forward.
func (h *Handler) AdvanceTime(c *fiber.Ctx) error {
	var req advanceRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	st, err := h.service.AdvanceTime(session(c), req.Days)
	if err != nil {
		return fail(err)
	}
	return c.JSON(toClockResponse(st))
}

// RealTime returns to the system clock.
func (h *Handler) RealTime(c *fiber.Ctx) error {
	st, err := h.service.RealTime(session(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(toClockResponse(st))
}
