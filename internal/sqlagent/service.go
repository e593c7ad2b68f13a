// Package sqlagent answers shopper questions from the shop database. A model
// writes one SELECT, the query is checked against the read-only guard, the
// catalog runs it, and a model phrases the rows as a Vietnamese answer.
// Order questions are gated on the shopper's email before any model call.
package sqlagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/sqlguard"
	"github.com/billshop/shopai-go/internal/store"
)

const (
	msgLoginRequired = "❌ Bạn cần đăng nhập (cung cấp email) để xem thông tin đơn hàng."
	msgOrderNotFound = "❌ Không tìm thấy đơn hàng #%s thuộc về email %s."
	msgReadOnly      = "Xin lỗi, tôi chỉ có quyền đọc dữ liệu nên không thể thực hiện yêu cầu thay đổi cơ sở dữ liệu."
	msgNoQuery       = "Xin lỗi, tôi chưa tìm được cách tra cứu thông tin này từ dữ liệu của cửa hàng."

	// Refusal is what a Generator returns for questions that would need to
	// change data.
	Refusal = "READ_ONLY"

	// DefaultMaxRows caps the rows handed to the answer model.
	DefaultMaxRows = 50
)

var orderIDPattern = regexp.MustCompile(`\b\d+\b`)

// Request is the body of POST /sql/sql.
type Request struct {
	Query      string `json:"query" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	TopProduct string `json:"top_product,omitempty"`
}

// Response carries the answer. SQL is the statement that ran, if any; it is
// logged but not returned to shoppers.
type Response struct {
	Answer string `json:"answer"`
	SQL    string `json:"-"`
}

// Generator turns a question into a single SQL statement for the given
// schema description.
type Generator interface {
	GenerateSQL(ctx context.Context, question, schema string) (string, error)
}

// Answerer phrases query results as an answer to the question. session
// identifies the conversation for follow-up context.
type Answerer interface {
	Answer(ctx context.Context, session, question, query, result string) (string, error)
}

// Catalog is the part of catalog.Store the assistant reads.
type Catalog interface {
	Tables() []string
	TableInfo(ctx context.Context) (string, error)
	Query(ctx context.Context, query string, maxRows int) (*catalog.QueryResult, error)
	OrderOwnedBy(ctx context.Context, orderID int64, email string) (bool, error)
}

// Config wires a Service.
type Config struct {
	Catalog   Catalog
	Generator Generator
	Answerer  Answerer
	// MaxRows defaults to DefaultMaxRows.
	MaxRows int
}

// Service is the SQL assistant.
type Service struct {
	catalog   Catalog
	generator Generator
	answerer  Answerer
	maxRows   int
}

// New validates cfg and returns a Service.
func New(cfg *Config) (*Service, error) {
	if cfg.Catalog == nil || cfg.Generator == nil || cfg.Answerer == nil {
		return nil, errors.New("sqlagent: Catalog, Generator and Answerer are required")
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Service{
		catalog:   cfg.Catalog,
		generator: cfg.Generator,
		answerer:  cfg.Answerer,
		maxRows:   maxRows,
	}, nil
}

// Ask answers req. Gate refusals and guard rejections are answers, not
// errors; errors are reserved for model and database failures.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	log := logging.FromContext(ctx)
	email := strings.TrimSpace(req.Email)

	answer, stop, err := s.orderGate(ctx, req.Query, email)
	if err != nil {
		return nil, err
	}
	if stop {
		return &Response{Answer: answer}, nil
	}

	question := req.Query
	if req.TopProduct != "" {
		question += fmt.Sprintf("\n(Sản phẩm được quan tâm: %s)", req.TopProduct)
	}

	schema, err := s.catalog.TableInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlagent: load schema: %w", err)
	}

	raw, err := s.generator.GenerateSQL(ctx, question, schema)
	if err != nil {
		return nil, fmt.Errorf("sqlagent: generate sql: %w", err)
	}
	candidate := sqlguard.StripFences(raw)
	switch {
	case candidate == "":
		return &Response{Answer: msgNoQuery}, nil
	case strings.EqualFold(candidate, Refusal):
		return &Response{Answer: msgReadOnly}, nil
	}

	query, err := sqlguard.Check(candidate, s.catalog.Tables())
	if err != nil {
		var v *sqlguard.Violation
		if errors.As(err, &v) {
			log.Warn("sqlagent: generated query rejected", slog.String("sql", candidate), slog.String("reason", v.Reason))
			return &Response{Answer: msgReadOnly, SQL: candidate}, nil
		}
		return nil, fmt.Errorf("sqlagent: %w", err)
	}
	log.Debug("sqlagent: running query", slog.String("sql", query))

	result, err := s.catalog.Query(ctx, query, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("sqlagent: run query: %w", err)
	}

	answer, err = s.answerer.Answer(ctx, sessionFor(email), question, query, result.Format())
	if err != nil {
		return nil, fmt.Errorf("sqlagent: answer: %w", err)
	}
	return &Response{Answer: answer, SQL: query}, nil
}

// orderGate enforces that order questions come from a known shopper and name
// only that shopper's orders. stop reports that answer is final.
func (s *Service) orderGate(ctx context.Context, query, email string) (answer string, stop bool, err error) {
	lowered := strings.ToLower(query)
	if !strings.Contains(lowered, "order") && !strings.Contains(lowered, "đơn") {
		return "", false, nil
	}
	if email == "" {
		return msgLoginRequired, true, nil
	}

	id := orderIDPattern.FindString(query)
	if id == "" {
		return "", false, nil
	}
	notFound := fmt.Sprintf(msgOrderNotFound, id, email)
	n, perr := strconv.ParseInt(id, 10, 64)
	if perr != nil {
		return notFound, true, nil
	}
	owned, err := s.catalog.OrderOwnedBy(ctx, n, email)
	if err != nil {
		return "", true, fmt.Errorf("sqlagent: check order ownership: %w", err)
	}
	if !owned {
		return notFound, true, nil
	}
	return "", false, nil
}

func sessionFor(email string) string {
	if email == "" {
		return store.AnonymousSession
	}
	return strings.ToLower(email)
}
