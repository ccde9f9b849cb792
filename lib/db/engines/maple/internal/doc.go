// Package internal contains the shard and entry types of the maple engine.
package internal
