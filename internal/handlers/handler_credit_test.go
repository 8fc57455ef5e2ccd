package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/dto"
	"github.com/pixamint/credit_ledger_app/internal/handlers"
	"github.com/pixamint/credit_ledger_app/internal/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock CreditService ---
type MockCreditService struct {
	mock.Mock
}

func (m *MockCreditService) GrantCredits(ctx context.Context, req dto.GrantCreditsRequest) (*domain.CreditEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditEntry), args.Error(1)
}
func (m *MockCreditService) GrantWelcomeCredits(ctx context.Context, userID string, userEmail string) (*domain.CreditEntry, error) {
	args := m.Called(ctx, userID, userEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditEntry), args.Error(1)
}
func (m *MockCreditService) ConsumeCredits(ctx context.Context, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditEntry), args.Error(1)
}
func (m *MockCreditService) ConsumeCreditsInTx(ctx context.Context, tx pgx.Tx, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error) {
	args := m.Called(ctx, tx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditEntry), args.Error(1)
}
func (m *MockCreditService) GetRemainingCredits(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCreditService) GetRemainingCreditsBatch(ctx context.Context, userIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}
func (m *MockCreditService) ListCredits(ctx context.Context, filter portsrepo.CreditListFilter, limit int, offset int) ([]domain.CreditEntry, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CreditEntry), args.Error(1)
}
func (m *MockCreditService) CountCredits(ctx context.Context, filter portsrepo.CreditListFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCreditService) RevokeCreditsForOrder(ctx context.Context, orderNo string) (*dto.RevokeCreditsResult, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RevokeCreditsResult), args.Error(1)
}
func (m *MockCreditService) ExpireLapsedCredits(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.CreditSvcFacade = (*MockCreditService)(nil)

// --- Mock ReportingService ---
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) GetUsageSummary(ctx context.Context, userID string, from time.Time, to time.Time) (*domain.UsageSummary, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageSummary), args.Error(1)
}

var _ portssvc.ReportingSvc = (*MockReportingService)(nil)

// --- Test Suite ---
type CreditHandlerTestSuite struct {
	suite.Suite
	router               *gin.Engine
	mockCreditService    *MockCreditService
	mockReportingService *MockReportingService
	jwtSecret            string
}

func (suite *CreditHandlerTestSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "ledger-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *CreditHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockCreditService = new(MockCreditService)
	suite.mockReportingService = new(MockReportingService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterCreditRoutes(v1, suite.mockCreditService, suite.mockReportingService)
}

func (suite *CreditHandlerTestSuite) doJSON(method, url, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(userID))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *CreditHandlerTestSuite) TestConsumeCredits_Success() {
	userID := uuid.NewString()
	entry := &domain.CreditEntry{
		CreditID:      uuid.NewString(),
		UserID:        userID,
		TransactionNo: "12345",
		Type:          domain.TransactionTypeConsume,
		Credits:       -30,
		Status:        domain.CreditStatusActive,
		CreatedAt:     time.Now(),
	}

	suite.mockCreditService.On("ConsumeCredits",
		mock.Anything,
		mock.MatchedBy(func(req dto.ConsumeCreditsRequest) bool {
			return req.UserID == userID && req.Credits == 30
		}),
	).Return(entry, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/consume", userID, gin.H{"credits": 30})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.CreditResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(int64(-30), resp.Credits)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestConsumeCredits_InsufficientCredits() {
	userID := uuid.NewString()

	suite.mockCreditService.On("ConsumeCredits", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInsufficientCreditsError(10, 100)).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/consume", userID, gin.H{"credits": 100})

	suite.Equal(http.StatusPaymentRequired, w.Code)
	var resp map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.EqualValues(10, resp["balance"])
	suite.EqualValues(100, resp["requested"])
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestConsumeCredits_TooManyBatches() {
	userID := uuid.NewString()

	suite.mockCreditService.On("ConsumeCredits", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrTooManyBatches).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/consume", userID, gin.H{"credits": 100})

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestConsumeCredits_BindingFailure() {
	userID := uuid.NewString()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/consume", userID, gin.H{"credits": 0})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockCreditService.AssertNotCalled(suite.T(), "ConsumeCredits")
}

func (suite *CreditHandlerTestSuite) TestConsumeCredits_Unauthenticated() {
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/credits/consume", bytes.NewBufferString(`{"credits":30}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockCreditService.AssertNotCalled(suite.T(), "ConsumeCredits")
}

func (suite *CreditHandlerTestSuite) TestGrantCredits_Success() {
	userID := uuid.NewString()
	targetUser := uuid.NewString()
	entry := &domain.CreditEntry{
		CreditID:  uuid.NewString(),
		UserID:    targetUser,
		Type:      domain.TransactionTypeGrant,
		Scene:     domain.ScenePayment,
		Credits:   500,
		Remaining: 500,
		Status:    domain.CreditStatusActive,
		CreatedAt: time.Now(),
	}

	suite.mockCreditService.On("GrantCredits",
		mock.Anything,
		mock.MatchedBy(func(req dto.GrantCreditsRequest) bool {
			return req.UserID == targetUser && req.Credits == 500 && req.Scene == domain.ScenePayment
		}),
	).Return(entry, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/grant", userID, gin.H{
		"userID":  targetUser,
		"credits": 500,
		"scene":   "payment",
	})

	suite.Equal(http.StatusCreated, w.Code)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestGrantCredits_InvalidScene() {
	userID := uuid.NewString()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/grant", userID, gin.H{
		"userID":  uuid.NewString(),
		"credits": 500,
		"scene":   "lottery",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockCreditService.AssertNotCalled(suite.T(), "GrantCredits")
}

func (suite *CreditHandlerTestSuite) TestRevokeCredits_Success() {
	userID := uuid.NewString()
	result := &dto.RevokeCreditsResult{RevokedCount: 2, TotalCreditsRevoked: 60, TotalCreditsGranted: 160}

	suite.mockCreditService.On("RevokeCreditsForOrder", mock.Anything, "order-7").
		Return(result, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/revoke", userID, gin.H{"orderNo": "order-7"})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.RevokeCreditsResult
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(2, resp.RevokedCount)
	suite.Equal(int64(60), resp.TotalCreditsRevoked)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestGetBalance() {
	userID := uuid.NewString()

	suite.mockCreditService.On("GetRemainingCredits", mock.Anything, userID).
		Return(int64(420), nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/credits/balance", userID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(userID, resp.UserID)
	suite.Equal(int64(420), resp.RemainingCredits)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestGetBalanceBatch() {
	userID := uuid.NewString()
	userIDs := []string{"user-1", "user-2"}

	suite.mockCreditService.On("GetRemainingCreditsBatch", mock.Anything, userIDs).
		Return(map[string]int64{"user-1": 100}, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/credits/balance/batch", userID, gin.H{"userIDs": userIDs})

	suite.Equal(http.StatusOK, w.Code)
	var resp map[string]int64
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(int64(100), resp["user-1"])
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestListCredits_PaginatesWithCursor() {
	userID := uuid.NewString()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []domain.CreditEntry{
		{CreditID: "c1", UserID: userID, Type: domain.TransactionTypeGrant, Credits: 100, Status: domain.CreditStatusActive, CreatedAt: createdAt},
		{CreditID: "c2", UserID: userID, Type: domain.TransactionTypeGrant, Credits: 50, Status: domain.CreditStatusActive, CreatedAt: createdAt.Add(-time.Hour)},
	}

	suite.mockCreditService.On("ListCredits", mock.Anything,
		mock.MatchedBy(func(f portsrepo.CreditListFilter) bool { return f.UserID == userID }),
		2, 0,
	).Return(entries, nil).Once()
	suite.mockCreditService.On("CountCredits", mock.Anything, mock.Anything).
		Return(int64(5), nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/credits?limit=2", userID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListCreditsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Credits, 2)
	suite.Equal(int64(5), resp.Total)
	// A full page yields a cursor positioned at the last entry
	suite.NotEmpty(resp.NextToken)
	suite.mockCreditService.AssertExpectations(suite.T())
}

func (suite *CreditHandlerTestSuite) TestGetUsageSummary() {
	userID := uuid.NewString()
	summary := &domain.UsageSummary{UserID: userID, TotalGranted: 1000, TotalConsumed: 400, ConsumptionCount: 8}

	suite.mockReportingService.On("GetUsageSummary", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(summary, nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/credits/summary", userID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp domain.UsageSummary
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(int64(1000), resp.TotalGranted)
	suite.mockReportingService.AssertExpectations(suite.T())
}

// --- Run Suite ---
func TestCreditHandler(t *testing.T) {
	suite.Run(t, new(CreditHandlerTestSuite))
}
