// Package redis mirrors node components to a redis database: every update is
// stored under prefix:key and announced on the prefix:events channel.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/outside"
)

type Interface struct {
	db     *redis.Client
	ctx    context.Context
	prefix string
	log    *logrus.Entry

	mu   sync.Mutex
	subs []*redis.PubSub
}

var _ outside.Writable = (*Interface)(nil)

// Init connects to address and checks the server answers.
func Init(self *Interface, address string, prefix string, log *logrus.Entry) error {
	self.db = redis.NewClient(&redis.Options{Addr: address})
	self.ctx = context.Background()
	self.prefix = prefix
	self.log = log
	if err := self.db.Ping(self.ctx).Err(); err != nil {
		self.db.Close()
		return fmt.Errorf("redis ping %s: %w", address, err)
	}
	return nil
}

func (i *Interface) key(key string) string {
	if i.prefix == "" {
		return key
	}
	return i.prefix + ":" + key
}

func (i *Interface) UpdateComponent(key string, value string) {
	if err := i.db.Set(i.ctx, i.key(key), value, 0).Err(); err != nil {
		i.log.Warnf("redis SET %s: %v", i.key(key), err)
		return
	}
	if err := i.db.Publish(i.ctx, i.key("events"), key+"="+value).Err(); err != nil {
		i.log.Warnf("redis PUBLISH %s: %v", i.key("events"), err)
	}
}

// RegisterWritableComponent subscribes to the prefix:key channel. The
// returned channel is closed by Close.
func (i *Interface) RegisterWritableComponent(key string) <-chan outside.SubMessage {
	ret := make(chan outside.SubMessage)
	sub := i.db.Subscribe(i.ctx, i.key(key))
	if _, err := sub.Receive(i.ctx); err != nil {
		i.log.Errorf("redis SUBSCRIBE %s: %v", i.key(key), err)
		sub.Close()
		close(ret)
		return ret
	}
	i.mu.Lock()
	i.subs = append(i.subs, sub)
	i.mu.Unlock()
	go func() {
		defer close(ret)
		for m := range sub.Channel() {
			ret <- outside.SubMessage{Key: key, Value: m.Payload}
		}
	}()
	return ret
}

func (i *Interface) Close() error {
	i.mu.Lock()
	for _, s := range i.subs {
		s.Close()
	}
	i.subs = nil
	i.mu.Unlock()
	return i.db.Close()
}
