// Package grpcserver implements rpcapi.NodeService against an
// internal/orchestrator.Engine: a thin shell over the orchestration
// engine for the RPC adapter.
package grpcserver

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/thetacrypt/internal/orchestrator"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/keychain"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/rpcapi"
	"github.com/luxfi/thetacrypt/pkg/schemes/bz03"
	"github.com/luxfi/thetacrypt/pkg/schemes/sg02"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

// Membership is the fixed group of n nodes this server's protocol.Config
// is built from.
type Membership struct {
	SelfID    party.ID
	PartyIDs  party.IDSlice
	Threshold int
}

// Server implements rpcapi.NodeService.
type Server struct {
	engine     *orchestrator.Engine
	membership Membership
}

// New builds a Server over an already-started Engine.
func New(engine *orchestrator.Engine, membership Membership) *Server {
	return &Server{engine: engine, membership: membership}
}

func (s *Server) config() protocol.Config {
	return protocol.Config{
		SelfID:    s.membership.SelfID,
		PartyIDs:  s.membership.PartyIDs,
		Threshold: s.membership.Threshold,
	}
}

// decodeCiphertext peeks the wire scheme tag and decodes enough of the
// ciphertext (label, key-id, group) to submit it without the orchestrator
// needing to know SG02 from BZ03 itself.
func decodeCiphertext(data []byte) (scheme protocol.Scheme, label []byte, keyID wire.KeyID, g group.Code, err error) {
	tag, err := wire.PeekScheme(data)
	if err != nil {
		return 0, nil, "", 0, err
	}
	switch tag {
	case protocol.SG02:
		ct, err := sg02.UnmarshalCiphertext(data)
		if err != nil {
			return 0, nil, "", 0, err
		}
		return protocol.SG02, ct.Label, ct.KeyID, ct.U.Group().Code(), nil
	case protocol.BZ03:
		ct, err := bz03.UnmarshalCiphertext(data)
		if err != nil {
			return 0, nil, "", 0, err
		}
		return protocol.BZ03, ct.Label, ct.KeyID, ct.U.Group().Code(), nil
	default:
		return 0, nil, "", 0, errs.Newf(errs.WrongScheme, "grpcserver: scheme %s does not support decrypt", tag)
	}
}

func (s *Server) submitDecrypt(ctx context.Context, req *rpcapi.DecryptRequest) (orchestrator.InstanceID, error) {
	scheme, label, ctKeyID, g, err := decodeCiphertext(req.Ciphertext)
	if err != nil {
		return "", err
	}
	keyID := ctKeyID
	if req.KeyID != "" {
		keyID = wire.KeyID(req.KeyID)
	}
	return s.engine.Submit(ctx, scheme, g, keyID, label, req.Ciphertext, s.config())
}

// Decrypt implements rpcapi.NodeService.
func (s *Server) Decrypt(ctx context.Context, req *rpcapi.DecryptRequest) (*rpcapi.DecryptResponse, error) {
	id, err := s.submitDecrypt(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpcapi.DecryptResponse{InstanceID: string(id)}, nil
}

// DecryptSync implements rpcapi.NodeService: it submits the instance and
// blocks, up to the call's own deadline, for the result.
func (s *Server) DecryptSync(ctx context.Context, req *rpcapi.DecryptRequest) (*rpcapi.DecryptSyncResponse, error) {
	id, err := s.submitDecrypt(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	result, err := s.engine.Await(ctx, id)
	if err != nil {
		return &rpcapi.DecryptSyncResponse{InstanceID: string(id)}, nil
	}
	plaintext, _ := result.([]byte)
	return &rpcapi.DecryptSyncResponse{InstanceID: string(id), Plaintext: plaintext}, nil
}

// GetDecryptResult implements rpcapi.NodeService.
func (s *Server) GetDecryptResult(ctx context.Context, req *rpcapi.GetDecryptResultRequest) (*rpcapi.GetDecryptResultResponse, error) {
	started, finished, result, err := s.engine.GetResult(ctx, orchestrator.InstanceID(req.InstanceID))
	if err != nil {
		return &rpcapi.GetDecryptResultResponse{IsStarted: started, IsFinished: finished}, nil
	}
	plaintext, _ := result.([]byte)
	return &rpcapi.GetDecryptResultResponse{IsStarted: started, IsFinished: finished, Plaintext: plaintext}, nil
}

// GetPublicKeysForEncryption implements rpcapi.NodeService.
func (s *Server) GetPublicKeysForEncryption(ctx context.Context, _ *rpcapi.Empty) (*rpcapi.GetPublicKeysResponse, error) {
	keys, err := s.engine.PublicKeysForEncryption()
	if err != nil {
		return nil, toStatus(err)
	}
	return toKeysResponse(keys), nil
}

// GetPublicKeysForSignature implements rpcapi.NodeService.
func (s *Server) GetPublicKeysForSignature(ctx context.Context, _ *rpcapi.Empty) (*rpcapi.GetPublicKeysResponse, error) {
	keys, err := s.engine.PublicKeysForSignature()
	if err != nil {
		return nil, toStatus(err)
	}
	return toKeysResponse(keys), nil
}

// PushDecryptionShare is a test-only endpoint for injecting a peer share
// directly, bypassing gossip.
func (s *Server) PushDecryptionShare(ctx context.Context, req *rpcapi.PushDecryptionShareRequest) (*rpcapi.Empty, error) {
	s.engine.Deliver(ctx, orchestrator.InstanceID(req.InstanceID), &protocol.Message{
		From: party.ID(req.ShareID),
		Data: req.Share,
	})
	return &rpcapi.Empty{}, nil
}

func toKeysResponse(keys []keychain.PublicKeyInfo) *rpcapi.GetPublicKeysResponse {
	out := make([]rpcapi.PublicKeyEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, rpcapi.PublicKeyEntry{
			KeyID:  string(k.KeyID),
			Scheme: uint8(k.Scheme),
			Group:  uint8(k.Group),
			Data:   k.Data,
		})
	}
	return &rpcapi.GetPublicKeysResponse{Keys: out}
}

// toStatus maps the node's error taxonomy to standard gRPC status codes.
func toStatus(err error) error {
	kind := errs.KindOf(err)
	var code codes.Code
	switch kind {
	case errs.InvalidParams, errs.WrongScheme, errs.WrongGroup, errs.WrongKeyProvided,
		errs.MessageNotSpecified, errs.MessageAlreadySpecified, errs.DeserializationFailed:
		code = codes.InvalidArgument
	case errs.AlreadyExists:
		code = codes.AlreadyExists
	case errs.KeyNotFound, errs.IDNotFound:
		code = codes.NotFound
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
