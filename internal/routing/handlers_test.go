package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports/portsmock"
)

type HandlerTestSuite struct {
	suite.Suite
	svc       *portsmock.ProductService
	logs      *bytes.Buffer
	router    http.Handler
	productId uuid.UUID
	product   *domain.Product
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (suite *HandlerTestSuite) SetupSuite() {
	suite.svc = new(portsmock.ProductService)
	suite.logs = new(bytes.Buffer)
	logger := slog.New(slog.NewJSONHandler(suite.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	suite.router = NewRouter(NewProductHandler(suite.svc), NewLogger(logger), time.Second).SetupRoutes()
	suite.productId = uuid.New()
	suite.product = &domain.Product{ID: suite.productId, Name: "Book", Description: "A nice book", Price: 1000}
}

func (suite *HandlerTestSuite) SetupSubTest() {
	suite.svc.ExpectedCalls = nil
	suite.svc.Calls = nil
	suite.logs.Reset()
}

func (suite *HandlerTestSuite) TearDownSubTest() {
	suite.svc.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	suite.router.ServeHTTP(rr, req)
	return rr
}

func (suite *HandlerTestSuite) decodeError(rr *httptest.ResponseRecorder) errorBody {
	var body errorBody
	suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func (suite *HandlerTestSuite) lastLogLine() map[string]any {
	lines := bytes.Split(bytes.TrimSpace(suite.logs.Bytes()), []byte("\n"))
	suite.Require().NotEmpty(lines)
	var entry map[string]any
	suite.Require().NoError(json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func (suite *HandlerTestSuite) TestHello() {
	suite.Run("greeting", func() {
		rr := suite.do(http.MethodGet, "/", "")
		suite.Equal(http.StatusOK, rr.Code)
		suite.Equal("Hello there", rr.Body.String())
	})
}

func (suite *HandlerTestSuite) TestListProducts() {
	suite.Run("List products - ok", func() {
		products := []domain.Product{*suite.product}
		suite.svc.On("List", mock.Anything).Return(products, nil).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusOK, rr.Code)
		suite.Equal("application/json", rr.Header().Get("Content-Type"))
		var got []domain.Product
		suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &got))
		suite.Equal(products, got)
		suite.Equal("INFO", suite.lastLogLine()["level"])
	})

	suite.Run("List products - empty list is an array", func() {
		suite.svc.On("List", mock.Anything).Return([]domain.Product{}, nil).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusOK, rr.Code)
		suite.JSONEq(`[]`, rr.Body.String())
	})

	suite.Run("List products - repository failure is opaque", func() {
		cause := fmt.Errorf("%w: dial tcp 10.0.0.5:5432: connection refused", domain.ErrInternalDb)
		suite.svc.On("List", mock.Anything).Return([]domain.Product(nil), domain.NewRepositoryError("list products", cause)).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusInternalServerError, rr.Code)
		suite.Equal("Internal server error", suite.decodeError(rr).Error)
		suite.NotContains(rr.Body.String(), "10.0.0.5")

		entry := suite.lastLogLine()
		suite.Equal("ERROR", entry["level"])
		suite.Contains(fmt.Sprint(entry["errors"]), "connection refused")
	})
}

func (suite *HandlerTestSuite) TestCreateProduct() {
	input := domain.ProductInput{Name: "Book", Description: "A nice book", Price: 1000}

	suite.Run("Create product - created with location", func() {
		suite.svc.On("Add", mock.Anything, input).Return(suite.product, nil).Once()

		rr := suite.do(http.MethodPost, "/api/products", `{"name":"Book","description":"A nice book","price":1000}`)
		suite.Equal(http.StatusCreated, rr.Code)
		suite.Equal("/api/products/"+suite.productId.String(), rr.Header().Get("Location"))
		var got domain.Product
		suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &got))
		suite.Equal(*suite.product, got)
	})

	suite.Run("Create product - malformed body", func() {
		rr := suite.do(http.MethodPost, "/api/products", `{"name":`)
		suite.Equal(http.StatusBadRequest, rr.Code)
		suite.Equal("Invalid request body", suite.decodeError(rr).Error)
		suite.Equal("WARN", suite.lastLogLine()["level"])
	})

	suite.Run("Create product - unknown fields ignored", func() {
		suite.svc.On("Add", mock.Anything, domain.ProductInput{Name: "Book", Price: 1}).Return(suite.product, nil).Once()

		rr := suite.do(http.MethodPost, "/api/products", `{"name":"Book","price":1,"colour":"red"}`)
		suite.Equal(http.StatusCreated, rr.Code)
	})

	suite.Run("Create product - validation error", func() {
		negative := domain.ProductInput{Name: "Book", Price: -1}
		cause := validation.Errors{"price": validation.NewError("validation_min_greater_equal_than_required", "must be no less than 0")}
		suite.svc.On("Add", mock.Anything, negative).Return((*domain.Product)(nil), domain.NewValidationError("add product", cause)).Once()

		rr := suite.do(http.MethodPost, "/api/products", `{"name":"Book","price":-1}`)
		suite.Equal(http.StatusBadRequest, rr.Code)
		body := suite.decodeError(rr)
		suite.Equal("Invalid product", body.Error)
		suite.Contains(body.Details, "price")
	})
}

func (suite *HandlerTestSuite) TestGetProduct() {
	path := "/api/products/" + suite.productId.String()

	suite.Run("Get product - found", func() {
		suite.svc.On("Find", mock.Anything, suite.productId).Return(suite.product, nil).Once()

		rr := suite.do(http.MethodGet, path, "")
		suite.Equal(http.StatusOK, rr.Code)
		var got domain.Product
		suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &got))
		suite.Equal(*suite.product, got)
	})

	suite.Run("Get product - not found", func() {
		suite.svc.On("Find", mock.Anything, suite.productId).Return((*domain.Product)(nil), domain.NewNotFoundError("find product")).Once()

		rr := suite.do(http.MethodGet, path, "")
		suite.Equal(http.StatusNotFound, rr.Code)
		suite.Equal("Product not found", suite.decodeError(rr).Error)
	})

	suite.Run("Get product - malformed id", func() {
		rr := suite.do(http.MethodGet, "/api/products/42", "")
		suite.Equal(http.StatusBadRequest, rr.Code)
		suite.Equal("Invalid product id", suite.decodeError(rr).Error)
	})

	suite.Run("Get product - store timeout", func() {
		cause := fmt.Errorf("%w: %w", domain.ErrInternalDb, context.DeadlineExceeded)
		suite.svc.On("Find", mock.Anything, suite.productId).Return((*domain.Product)(nil), domain.NewRepositoryError("find product", cause)).Once()

		rr := suite.do(http.MethodGet, path, "")
		suite.Equal(http.StatusGatewayTimeout, rr.Code)
	})
}

func (suite *HandlerTestSuite) TestReplaceProduct() {
	path := "/api/products/" + suite.productId.String()
	input := domain.ProductInput{Name: "Book", Description: "Second edition", Price: 1500}

	suite.Run("Replace product - ok", func() {
		updated := &domain.Product{ID: suite.productId, Name: "Book", Description: "Second edition", Price: 1500}
		suite.svc.On("Modify", mock.Anything, suite.productId, input).Return(updated, nil).Once()

		rr := suite.do(http.MethodPut, path, `{"name":"Book","description":"Second edition","price":1500}`)
		suite.Equal(http.StatusOK, rr.Code)
	})

	suite.Run("Replace product - body of a previous GET", func() {
		updated := &domain.Product{ID: suite.productId, Name: "Book", Description: "Second edition", Price: 1500}
		suite.svc.On("Modify", mock.Anything, suite.productId, input).Return(updated, nil).Once()

		body, err := json.Marshal(updated)
		suite.Require().NoError(err)
		rr := suite.do(http.MethodPut, path, string(body))
		suite.Equal(http.StatusOK, rr.Code)
	})

	suite.Run("Replace product - not found", func() {
		suite.svc.On("Modify", mock.Anything, suite.productId, input).Return((*domain.Product)(nil), domain.NewNotFoundError("modify product")).Once()

		rr := suite.do(http.MethodPut, path, `{"name":"Book","description":"Second edition","price":1500}`)
		suite.Equal(http.StatusNotFound, rr.Code)
	})
}

func (suite *HandlerTestSuite) TestPatchProduct() {
	path := "/api/products/" + suite.productId.String()

	suite.Run("Patch product - only present fields are sent", func() {
		price := int64(900)
		patched := &domain.Product{ID: suite.productId, Name: "Book", Description: "A nice book", Price: 900}
		suite.svc.On("Patch", mock.Anything, suite.productId, domain.ProductPatch{Price: &price}).Return(patched, nil).Once()

		rr := suite.do(http.MethodPatch, path, `{"price":900}`)
		suite.Equal(http.StatusOK, rr.Code)
		var got domain.Product
		suite.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &got))
		suite.Equal(*patched, got)
	})
}

func (suite *HandlerTestSuite) TestDeleteProduct() {
	path := "/api/products/" + suite.productId.String()

	suite.Run("Delete product - no content", func() {
		suite.svc.On("Remove", mock.Anything, suite.productId).Return(nil).Once()

		rr := suite.do(http.MethodDelete, path, "")
		suite.Equal(http.StatusNoContent, rr.Code)
		suite.Empty(rr.Body.Bytes())
	})

	suite.Run("Delete product - already gone", func() {
		suite.svc.On("Remove", mock.Anything, suite.productId).Return(domain.NewNotFoundError("remove product")).Once()

		rr := suite.do(http.MethodDelete, path, "")
		suite.Equal(http.StatusNotFound, rr.Code)
	})
}

func (suite *HandlerTestSuite) TestMiddleware() {
	suite.Run("request id and error container reach the handler", func() {
		suite.svc.On("List", mock.MatchedBy(func(ctx context.Context) bool {
			return domain.ErrorContainerFromContext(ctx) != nil
		})).Return([]domain.Product{}, nil).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusOK, rr.Code)
		suite.NotEmpty(suite.lastLogLine()["request_id"])
	})

	suite.Run("cache failures recorded by lower layers are logged at warn", func() {
		suite.svc.On("List", mock.Anything).
			Run(func(args mock.Arguments) {
				errs := domain.ErrorContainerFromContext(args.Get(0).(context.Context))
				errs.Add(&domain.Error{Kind: domain.KindCache, Op: "cache get products", Cause: domain.ErrInternalCache})
			}).
			Return([]domain.Product{}, nil).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusOK, rr.Code)
		entry := suite.lastLogLine()
		suite.Equal("WARN", entry["level"])
		suite.Contains(fmt.Sprint(entry["errors"]), "cache get products")
	})

	suite.Run("panic is recovered as 500", func() {
		suite.svc.On("List", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return([]domain.Product{}, nil).Once()

		rr := suite.do(http.MethodGet, "/api/products", "")
		suite.Equal(http.StatusInternalServerError, rr.Code)
		suite.Equal("ERROR", suite.lastLogLine()["level"])
	})

	suite.Run("unknown route", func() {
		rr := suite.do(http.MethodGet, "/products", "")
		suite.Equal(http.StatusNotFound, rr.Code)
	})

	suite.Run("method not allowed", func() {
		rr := suite.do(http.MethodPost, "/api/products/"+suite.productId.String(), `{}`)
		suite.Equal(http.StatusMethodNotAllowed, rr.Code)
	})
}

func (suite *HandlerTestSuite) TestCORS() {
	suite.Run("preflight is answered without reaching handlers", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", "https://shop.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rr := httptest.NewRecorder()
		suite.router.ServeHTTP(rr, req)

		suite.Equal(http.StatusNoContent, rr.Code)
		suite.Equal("https://shop.example", rr.Header().Get("Access-Control-Allow-Origin"))
		suite.Equal(http.MethodPost, rr.Header().Get("Access-Control-Allow-Methods"))
		suite.Equal("Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))
		suite.Equal("3600", rr.Header().Get("Access-Control-Max-Age"))
	})

	suite.Run("simple request carries allow-origin", func() {
		suite.svc.On("List", mock.Anything).Return([]domain.Product{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://shop.example")
		rr := httptest.NewRecorder()
		suite.router.ServeHTTP(rr, req)

		suite.Equal(http.StatusOK, rr.Code)
		suite.Equal("https://shop.example", rr.Header().Get("Access-Control-Allow-Origin"))
		suite.Equal("Location", rr.Header().Get("Access-Control-Expose-Headers"))
	})
}
