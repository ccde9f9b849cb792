package common

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,  // = c.RTTMillisecond * 10
		HeartbeatRTT:       heartbeatRTTFactor, // = c.RTTMillisecond * 1
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         filepath.Join(c.DataDir, "raft"),
		NodeHostDir:    filepath.Join(c.DataDir, "raft"),
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Services
// --------------------------------------------------------------------------

// ServiceKind selects the record family a service exposes
type ServiceKind string

const (
	ServiceLottery ServiceKind = "lottery"
	ServiceVoting  ServiceKind = "voting"
)

// Backend selects the store a service writes to
type Backend string

const (
	BackendMaple   Backend = "lstore:maple" // local store, maple engine, snapshot file in the data dir
	BackendLite    Backend = "lstore:lite"  // local store, sqlite file in the data dir
	BackendRaft    Backend = "dstore"       // replicated store (RAFT)
	defaultBackend         = BackendMaple
)

// ServiceConfig describes one service of the RPC server
type ServiceConfig struct {
	// ServiceID is the id clients address the service with (also the RAFT shard id)
	ServiceID uint64
	Kind      ServiceKind
	Backend   Backend
}

func (s ServiceConfig) String() string {
	return fmt.Sprintf("%d=%s(%s)", s.ServiceID, s.Kind, s.Backend)
}

// ParseServices parses a comma separated list of services.
// Each entry has the form <id>=<kind>[(<backend>)], e.g. "100=lottery(lstore:lite),200=voting".
// Without a backend the maple engine is used.
func ParseServices(s string) ([]ServiceConfig, error) {
	var services []ServiceConfig
	seen := make(map[uint64]bool)

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		idStr, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid service %q: expected <id>=<kind>", entry)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid service id %q", idStr)
		}
		if seen[id] {
			return nil, fmt.Errorf("service id %d is used twice", id)
		}
		seen[id] = true

		kind, backend := strings.TrimSpace(rest), string(defaultBackend)
		if open := strings.Index(kind, "("); open >= 0 {
			if !strings.HasSuffix(kind, ")") {
				return nil, fmt.Errorf("invalid service %q: missing ')'", entry)
			}
			backend = kind[open+1 : len(kind)-1]
			kind = kind[:open]
		}

		svc := ServiceConfig{ServiceID: id, Kind: ServiceKind(kind), Backend: Backend(backend)}
		switch svc.Kind {
		case ServiceLottery, ServiceVoting:
		default:
			return nil, fmt.Errorf("invalid service kind %q (must be lottery or voting)", kind)
		}
		switch svc.Backend {
		case BackendMaple, BackendLite, BackendRaft:
		default:
			return nil, fmt.Errorf("invalid backend %q (must be lstore:maple, lstore:lite or dstore)", backend)
		}
		services = append(services, svc)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services configured")
	}
	return services, nil
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the RPC server and the RAFT cluster.
type ServerConfig struct {
	Services []ServiceConfig

	// Dragenboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// DataDir holds the raft log, sqlite files and maple snapshots
	DataDir string

	// timeout of the distributed store
	TimeoutSecond int64

	// HTTP api settings
	Endpoint   string
	Serializer string

	// Logging configuration
	LogLevel string
}

// HasRaftService checks if the configuration contains any replicated service
func (c *ServerConfig) HasRaftService() bool {
	for _, svc := range c.Services {
		if svc.Backend == BackendRaft {
			return true
		}
	}
	return false
}

// StorePath returns the file a local service persists to, ext is the engine specific file extension.
func (c *ServerConfig) StorePath(serviceID uint64, ext string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("service-%d.%s", serviceID, ext))
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Serializer", c.Serializer)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)

	// Services
	addSection("Services")
	for _, svc := range c.Services {
		addField(strconv.FormatUint(svc.ServiceID, 10), fmt.Sprintf("%s (%s)", svc.Kind, svc.Backend))
	}

	if c.HasRaftService() {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		// Cluster members
		addSection("Cluster")
		sb.WriteString("  Initial Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(max(1, c.RetryCount)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
