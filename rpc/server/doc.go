// Package server implements the RPC server of recstore. It creates the configured
// lottery and voting services, each on its own store, and routes incoming requests
// to them.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface of all server adapters. Handle translates a request
//     message into a call of the wrapped service and builds the response.
//
//   - NewLotteryServerAdapter / NewVotingServerAdapter: Adapters for lottery.ILottery and
//     voting.IVoting. Results are msgpack encoded into the response Value, errors keep
//     their record.RetCode.
//
//   - RPCServer: Creates the stores and services (Open), decodes requests and encodes
//     responses (Handle), counts requests per service and message type with
//     VictoriaMetrics, and runs the transport until the context is cancelled (Serve).
//
// Usage Example:
//
//	services, _ := common.ParseServices("100=lottery(lstore:lite),200=voting")
//	config := common.ServerConfig{
//	  Services:      services,
//	  DataDir:       "./data",
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewMsgpackSerializer())
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Backends:
//
//   - lstore:maple: In-memory maple engine. With a data directory the store writes a
//     snapshot file after every write and loads it on startup.
//
//   - lstore:lite: SQLite engine, durable on its own. Needs a data directory.
//
//   - dstore: Replicated store using RAFT. The RAFT configuration (RTTMillisecond,
//     SnapshotEntries, CompactionOverhead, DataDir, ReplicaID and ClusterMembers) must
//     be set, the service id is used as shard id.
//
// Thread Safety:
//
//	Handle can be called concurrently. Each service serializes its writes, requests
//	for different services run in parallel. Open, Serve and Close must not be called
//	concurrently.
package server
