package lwd

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/synerr"
)

const (
	serviceName           = "/shieldsync.lightclient.v1.LightClient/"
	methodGetBlockRange   = serviceName + "GetBlockRange"
	methodGetTreeState    = serviceName + "GetTreeState"
	methodGetLatestBlock  = serviceName + "GetLatestBlock"
	methodGetTransaction  = serviceName + "GetTransaction"
)

// GRPCClient is a Client backed by a real google.golang.org/grpc
// connection. It does not depend on generated protobuf stubs: requests and
// responses travel as raw bytes under rawCodec, encoded/decoded by this
// package and by compact.Decode/EncodeBlock.
type GRPCClient struct {
	conn *grpc.ClientConn
}

var _ Client = (*GRPCClient)(nil)

// Dial opens a connection to a light-client server.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("lwd: dial %s: %w: %w", target, err, synerr.TransportFatal)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) GetBlockRange(ctx context.Context, start, end uint64, recv func(compact.Block) error) error {
	stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, methodGetBlockRange, forceRawCodec())
	if err != nil {
		return classifyGRPCErr(err)
	}
	req := &rawMessage{b: encodeBlockRangeRequest(start, end)}
	if err := stream.SendMsg(req); err != nil {
		return classifyGRPCErr(err)
	}
	if err := stream.CloseSend(); err != nil {
		return classifyGRPCErr(err)
	}
	for {
		msg := &rawMessage{}
		if err := stream.RecvMsg(msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return classifyGRPCErr(err)
		}
		blk, err := compact.DecodeBlock(msg.b)
		if err != nil {
			return err
		}
		if err := recv(blk); err != nil {
			return err
		}
	}
}

func (c *GRPCClient) GetTreeState(ctx context.Context, height uint64) (TreeState, error) {
	req := &rawMessage{b: encodeHeightRequest(height)}
	resp := &rawMessage{}
	if err := c.conn.Invoke(ctx, methodGetTreeState, req, resp, forceRawCodec()); err != nil {
		if status.Code(err) == codes.NotFound {
			return TreeState{Height: height, Present: false}, nil
		}
		return TreeState{}, classifyGRPCErr(err)
	}
	return decodeTreeState(resp.b)
}

func (c *GRPCClient) GetLatestBlock(ctx context.Context) (uint64, error) {
	resp := &rawMessage{}
	if err := c.conn.Invoke(ctx, methodGetLatestBlock, &rawMessage{}, resp, forceRawCodec()); err != nil {
		return 0, classifyGRPCErr(err)
	}
	return decodeLatestBlock(resp.b)
}

func (c *GRPCClient) GetTransaction(ctx context.Context, txid [32]byte) ([]byte, error) {
	req := &rawMessage{b: encodeTxidRequest(txid)}
	resp := &rawMessage{}
	if err := c.conn.Invoke(ctx, methodGetTransaction, req, resp, forceRawCodec()); err != nil {
		return nil, classifyGRPCErr(err)
	}
	return resp.b, nil
}

// classifyGRPCErr maps a grpc status code onto the sync engine's transport
// taxonomy (spec.md §7): Unavailable/DeadlineExceeded/ResourceExhausted/
// Aborted are transient and worth retrying, everything else is fatal.
func classifyGRPCErr(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %w", synerr.TransportTransient, err)
	default:
		return fmt.Errorf("%w: %w", synerr.TransportFatal, err)
	}
}
