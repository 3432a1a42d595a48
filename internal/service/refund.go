package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/util"
)

const MsgRefundRequested = "Request for refund is Successfull."

type RefundService struct {
	Repo    *repo.GormRepo
	Events  EventPublisher
	Metrics *metrics.ShopMetrics
}

// RequestRefund files a refund request against a finalized order found by
// its reference code. Only orders with neither flag set accept a request.
func (s *RefundService) RequestRefund(ctx context.Context, req transport.RefundRequest) (*models.Refund, error) {
	ref := strings.TrimSpace(req.RefCode)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)
	if ref == "" || email == "" || message == "" {
		return nil, newError(ErrValidation, "Please enter the valid Information!")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrValidation, "Please enter the valid Information!")
	}

	var refund *models.Refund
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.OrderByRefCode(ctx, ref, true)
		if isNotFound(err) {
			return newError(ErrNotFound, "Order does not exist! Please enter correct Order Referral Code.")
		}
		if err != nil {
			return err
		}

		switch {
		case order.RefundGranted && order.RefundRequest:
			return newError(ErrRefundInconsistent, "We are running with issues in processing refund for this order! Please try again later!")
		case order.RefundGranted:
			return newError(ErrRefundAlreadyGranted, "Refund for this order has been already granted!")
		case order.RefundRequest:
			return newError(ErrRefundPending, "Please wait your request in pending this order.")
		}

		if err := tx.UpdateOrder(ctx, order.ID, map[string]any{"refund_request": true}); err != nil {
			return err
		}
		refund = &models.Refund{OrderID: order.ID, Message: message, Email: email}
		return tx.CreateRefund(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Refund("requested")
	publish(ctx, s.Events, mykafka.TopicOrder, ref, map[string]any{
		"type": "refund_requested", "refund_id": refund.ID, "order_id": refund.OrderID, "ref_code": ref,
	})
	return refund, nil
}

func (s *RefundService) ListRefunds(ctx context.Context, pendingOnly bool, page, size int) ([]models.Refund, util.Meta, error) {
	offset, limit := util.Calculate(page, size)
	total, refunds, err := s.Repo.ListRefunds(ctx, pendingOnly, offset, limit)
	if err != nil {
		return nil, util.Meta{}, err
	}
	return refunds, util.NewMeta(page, limit, total), nil
}

// GrantRefund accepts a pending request and flips the order to granted.
func (s *RefundService) GrantRefund(ctx context.Context, refundID uint) (*models.Refund, error) {
	var ref string
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		rf, err := tx.GetRefund(ctx, refundID)
		if isNotFound(err) {
			return newError(ErrNotFound, "Refund request does not exist")
		}
		if err != nil {
			return err
		}
		if rf.Accepted {
			return newError(ErrConflict, "Refund has already been granted")
		}
		if rf.Order != nil && rf.Order.RefCode != nil {
			ref = *rf.Order.RefCode
		}

		if err := tx.AcceptRefund(ctx, rf.ID); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, rf.OrderID, map[string]any{
			"refund_granted": true,
			"refund_request": false,
		})
	})
	if err != nil {
		return nil, err
	}

	rf, err := s.Repo.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	s.Metrics.Refund("granted")
	publish(ctx, s.Events, mykafka.TopicOrder, ref, map[string]any{
		"type": "refund_granted", "refund_id": rf.ID, "order_id": rf.OrderID, "ref_code": ref,
	})
	return rf, nil
}
