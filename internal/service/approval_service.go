package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/model"
)

// ApprovalGateway is the remote approval API surface.
type ApprovalGateway interface {
	CreateApproval(ctx context.Context, req model.ApprovalRequest) (*dto.ApprovalResponse, error)
}

// ApprovalService escalates above-limit discounts to a manager. Approval is
// an online-only flow: there is no durable queue for it, because a discount
// cannot wait in limbo while a customer stands at the register.
type ApprovalService interface {
	RequestApproval(ctx context.Context, req model.ApprovalRequest) (*dto.ApprovalResponse, error)
}

type approvalService struct {
	gateway ApprovalGateway
}

func NewApprovalService(gateway ApprovalGateway) ApprovalService {
	return &approvalService{gateway: gateway}
}

func (s *approvalService) RequestApproval(ctx context.Context, req model.ApprovalRequest) (*dto.ApprovalResponse, error) {
	resp, err := s.gateway.CreateApproval(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("approval_id", resp.ID).Str("status", resp.Status).Msg("approval: requested")
	return resp, nil
}
