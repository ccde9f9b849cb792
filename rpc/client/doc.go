// Package client implements the RPC clients of recstore. LotteryClient implements
// lottery.ILottery and VotingClient implements voting.IVoting, so code written against
// the interfaces works the same with a local service or a remote one.
//
// Key Components:
//
//   - NewRPCLottery / NewRPCVoting: Connect the transport and return a client bound to
//     one service id of the server.
//
//   - Error handling: a failed operation comes back as the *record.Error the service
//     returned (same code, same message), so errors.Is(err, record.ErrNotFound) works
//     on both sides of the wire. Transport and protocol failures are RetCInternal.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	votes, _ := client.NewRPCVoting(200, config, http.NewHttpClientTransport(), serializer.NewMsgpackSerializer())
//	defer votes.Close()
//
//	if _, err := votes.AddVote("alice", "v1"); errors.Is(err, record.ErrDuplicate) {
//	  // v1 already voted for alice
//	}
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
