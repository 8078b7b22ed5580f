// Package discovery publishes initialized nodes to etcd so that tooling
// outside the test harness can see which ids a process is serving.
package discovery

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

func NewClient(endpoints []string, dialTimeout time.Duration) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
}

// etcdAPI is the part of *clientv3.Client the announcer needs.
type etcdAPI interface {
	clientv3.KV
	clientv3.Lease
}

// EtcdAnnouncer writes <prefix>/<node id> = comma-separated cluster members
// under a lease that is kept alive until Close.
type EtcdAnnouncer struct {
	cli     etcdAPI
	prefix  string
	ttl     int64
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	leases map[string]lease
	ctx    context.Context
	cancel context.CancelFunc
}

// lease is the live registration for one node id.
type lease struct {
	id   clientv3.LeaseID
	stop context.CancelFunc
}

func NewEtcdAnnouncer(cli etcdAPI, prefix string, ttl int64, timeout time.Duration, log *zap.Logger) *EtcdAnnouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &EtcdAnnouncer{
		cli:     cli,
		prefix:  prefix,
		ttl:     ttl,
		timeout: timeout,
		log:     log.Named("discovery"),
		leases:  make(map[string]lease),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (a *EtcdAnnouncer) Key(id string) string {
	return path.Join(a.prefix, id)
}

// Announce registers id under a fresh lease. Announcing an id again, as on
// re-init, replaces its key and revokes the lease it held before.
func (a *EtcdAnnouncer) Announce(ctx context.Context, id string, members []string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	grant, err := a.cli.Grant(ctx, a.ttl)
	if err != nil {
		return fmt.Errorf("grant lease for %s: %w", id, err)
	}
	key := a.Key(id)
	if _, err := a.cli.Put(ctx, key, strings.Join(members, ","), clientv3.WithLease(grant.ID)); err != nil {
		a.revoke(grant.ID)
		return fmt.Errorf("put %s: %w", key, err)
	}

	kctx, stop := context.WithCancel(a.ctx)
	ch, err := a.cli.KeepAlive(kctx, grant.ID)
	if err != nil {
		stop()
		a.revoke(grant.ID)
		return fmt.Errorf("keepalive %s: %w", key, err)
	}
	// drain responses so the client does not queue them
	go func() {
		for range ch {
		}
	}()

	a.mu.Lock()
	prev, replaced := a.leases[id]
	a.leases[id] = lease{id: grant.ID, stop: stop}
	a.mu.Unlock()

	if replaced {
		prev.stop()
		if err := a.revoke(prev.id); err != nil {
			a.log.Warn("revoke replaced lease", zap.String("key", key), zap.Error(err))
		}
	}

	a.log.Info("announced node", zap.String("key", key), zap.Int64("lease", int64(grant.ID)))
	return nil
}

// Close stops keepalives and revokes every lease, removing the keys.
func (a *EtcdAnnouncer) Close() error {
	a.cancel()

	a.mu.Lock()
	leases := a.leases
	a.leases = make(map[string]lease)
	a.mu.Unlock()

	var firstErr error
	for _, l := range leases {
		if err := a.revoke(l.id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *EtcdAnnouncer) revoke(id clientv3.LeaseID) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if _, err := a.cli.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoke lease %d: %w", id, err)
	}
	return nil
}
