// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// KeyBuilder provides utilities for building consistent NATS KV keys. Queue
// item keys embed the collection path, so every path segment is encoded to
// stay within the NATS KV key character set.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix.
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// QueueItemKey builds the encoded key for a queue item in a collection
// (e.g. "/principals/bob/inbox" + "sched-abc" -> encoded segments).
func (kb *KeyBuilder) QueueItemKey(collectionPath, name string) string {
	key := fmt.Sprintf("%s/%s", strings.TrimSuffix(collectionPath, "/"), name)
	return kb.applyPrefix(key)
}

// PrincipalKey builds the encoded key for a principal alias record.
func (kb *KeyBuilder) PrincipalKey(address string) string {
	return kb.applyPrefix(fmt.Sprintf("principal/%s", address))
}

// CollectionPrefix builds the decoded prefix shared by all items of a
// collection, used to filter decoded keys when listing.
func (kb *KeyBuilder) CollectionPrefix(collectionPath string) string {
	key := strings.TrimSuffix(collectionPath, "/") + "/"
	if kb.prefix == "" {
		return key
	}
	return fmt.Sprintf("/%s/%s", kb.prefix, strings.TrimPrefix(key, "/"))
}

func (kb *KeyBuilder) applyPrefix(key string) string {
	fullKey := key
	if kb.prefix != "" {
		fullKey = fmt.Sprintf("%s/%s", kb.prefix, strings.TrimPrefix(key, "/"))
	}

	encodedKey, err := kb.EncodeKey(fullKey)
	if err != nil {
		return fullKey
	}
	return encodedKey
}

// EncodeKey encodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}

		dst := make([]byte, base64.StdEncoding.EncodedLen(len(part)))
		base64.StdEncoding.Encode(dst, []byte(part))
		res = append(res, string(dst))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey decodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return fmt.Sprintf("/%s", strings.Join(res, "/")), nil
}
