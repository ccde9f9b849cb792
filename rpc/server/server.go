package server

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/engines/lite"
	"github.com/ValentinKolb/recstore/lib/db/engines/maple"
	"github.com/ValentinKolb/recstore/lib/lottery"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/ValentinKolb/recstore/lib/store/dstore"
	"github.com/ValentinKolb/recstore/lib/store/lstore"
	"github.com/ValentinKolb/recstore/lib/voting"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/ValentinKolb/recstore/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverService is a service of the RPC server: the store it writes to and
// the adapter that handles requests for it
type serverService struct {
	Config  common.ServiceConfig
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer routes requests of the transport to the configured services
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	services   *xsync.MapOf[uint64, serverService]
	nodeHost   *dragonboat.NodeHost
	recordOpts []record.Option
	opened     bool
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters.
// The record options are passed to every service (e.g. a clock or codec).
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewMsgpackSerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	opts ...record.Option,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		services:   xsync.NewMapOf[uint64, serverService](),
		recordOpts: opts,
	}
}

// Open creates the stores and services of the configuration.
// Serve calls Open itself, it is exported for embedding the server without a transport.
func (s *RPCServer) Open() error {
	if s.opened {
		return nil
	}

	// Create the Dragonboat NodeHost, only if we have replicated services
	if s.config.HasRaftService() {
		nh, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nh
	}

	/*
		Note: A single RPC Server can have any number of services. Each service owns
		its store, so two services never share regions even if they are of the same kind.
	*/

	for _, svcConfig := range s.config.Services {
		kv, err := s.openStore(svcConfig)
		if err != nil {
			s.Close()
			return fmt.Errorf("service %d: %w", svcConfig.ServiceID, err)
		}

		adapter, err := s.newAdapter(svcConfig, kv)
		if err != nil {
			closeStore(kv)
			s.Close()
			return fmt.Errorf("service %d: %w", svcConfig.ServiceID, err)
		}

		s.services.Store(svcConfig.ServiceID, serverService{Config: svcConfig, Store: kv, Adapter: adapter})
		Logger.Infof("created %s service %d (%s)", svcConfig.Kind, svcConfig.ServiceID, svcConfig.Backend)
	}

	s.opened = true
	Logger.Infof("recstore setup completed successfully")
	return nil
}

// openStore creates the store of a service according to its backend
func (s *RPCServer) openStore(svc common.ServiceConfig) (store.IStore, error) {
	mapleFactory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }

	switch svc.Backend {
	case common.BackendMaple:
		var opts []lstore.Option
		if s.config.DataDir != "" {
			opts = append(opts, lstore.WithSnapshotFile(s.config.StorePath(svc.ServiceID, "maple")))
		}
		return lstore.NewLocalStore(mapleFactory, opts...)

	case common.BackendLite:
		if s.config.DataDir == "" {
			return nil, fmt.Errorf("backend %s needs a data directory", svc.Backend)
		}
		path := s.config.StorePath(svc.ServiceID, "sqlite")
		return lstore.NewLocalStore(func() (db.KVDB, error) {
			return lite.NewLiteDB(&lite.DBOptions{Path: path})
		})

	case common.BackendRaft:
		if s.nodeHost == nil {
			return nil, fmt.Errorf("node host is nil, cannot create replicated store")
		}
		// the raft log makes the replicas durable, the state machine itself lives in memory
		return dstore.Start(
			s.nodeHost,
			s.config.ToDragonboatConfig(svc.ServiceID),
			s.config.ClusterMembers,
			mapleFactory,
			time.Duration(s.config.TimeoutSecond)*time.Second,
		)

	default:
		return nil, fmt.Errorf("invalid backend: %s", svc.Backend)
	}
}

// newAdapter creates the domain service on top of kv and wraps it in its adapter
func (s *RPCServer) newAdapter(svc common.ServiceConfig, kv store.IStore) (IRPCServerAdapter, error) {
	// the service id labels the record metrics, options given to the server come last
	opts := append([]record.Option{record.WithService(strconv.FormatUint(svc.ServiceID, 10))}, s.recordOpts...)

	switch svc.Kind {
	case common.ServiceLottery:
		l, err := lottery.NewService(kv, nil, opts...)
		if err != nil {
			return nil, err
		}
		return NewLotteryServerAdapter(l), nil
	case common.ServiceVoting:
		v, err := voting.NewService(kv, nil, opts...)
		if err != nil {
			return nil, err
		}
		return NewVotingServerAdapter(v), nil
	default:
		return nil, fmt.Errorf("invalid service kind: %s", svc.Kind)
	}
}

// Handle decodes a request, lets the adapter of the addressed service handle it and
// encodes the response. It is the handler registered at the transport.
func (s *RPCServer) Handle(serviceId uint64, req []byte) []byte {
	var respMsg *common.Message

	// Get appropriate service
	svc, ok := s.services.Load(serviceId)

	if !ok {
		// Case service does not exist -> error
		respMsg = common.NewErrorResponse(record.RetCNotFound, fmt.Sprintf("service %d not found", serviceId))
	} else {
		// Decode the request
		var msg common.Message
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(record.RetCInvalidInput, fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			// Let the adapter handle the request
			respMsg = svc.Adapter.Handle(&msg)
			s.countRequest(serviceId, msg.MsgType, respMsg.Code)
		}
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(record.RetCInternal,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// countRequest updates the request metrics of a service
func (s *RPCServer) countRequest(serviceId uint64, msgType common.MessageType, code record.RetCode) {
	service := strconv.FormatUint(serviceId, 10)
	metrics.GetOrCreateCounter(fmt.Sprintf(`recstore_rpc_requests_total{service=%q,type=%q}`, service, msgType)).Inc()
	if code != record.RetCSuccess {
		metrics.GetOrCreateCounter(fmt.Sprintf(`recstore_rpc_errors_total{service=%q,type=%q,code=%q}`, service, msgType, code)).Inc()
	}
}

// Serve starts the RPC server and blocks until ctx is cancelled or the transport fails.
// This function will also initialize the services, they are closed when it returns.
func (s *RPCServer) Serve(ctx context.Context) error {
	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()

	// Configure the transport layer
	s.transport.RegisterHandler(s.Handle)
	return s.transport.Listen(ctx, s.config)
}

// Close closes the stores of all services and stops the node host
func (s *RPCServer) Close() {
	s.services.Range(func(id uint64, svc serverService) bool {
		closeStore(svc.Store)
		s.services.Delete(id)
		return true
	})
	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	s.opened = false
}

func closeStore(kv store.IStore) {
	if err := kv.Close(); err != nil {
		Logger.Warningf("failed to close store: %v", err)
	}
}
