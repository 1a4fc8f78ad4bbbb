// SPDX-License-Identifier: AGPL-3.0-or-later
// STARS - a text-line message broker for distributed laboratory instrument control
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package policy

import (
	"errors"
	"sort"
	"strings"
)

// ErrAlreadySubscribed is returned by Subscribe for a duplicate
// (subscriber, path) pair.
var ErrAlreadySubscribed = errors.New("already in the list")

// ErrNoSubscriptions is returned by Unsubscribe when subscriber has no
// subscriptions at all.
var ErrNoSubscriptions = errors.New("list is void")

// ErrNotSubscribed is returned by Unsubscribe when subscriber has
// subscriptions but not to path.
var ErrNotSubscribed = errors.New("not in the list")

// Subscribe registers (subscriber, watchedPath), per the flgon verb.
func (s *Store) Subscribe(subscriber, watchedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, ok := s.subscriptions[subscriber]
	if !ok {
		paths = map[string]struct{}{}
		s.subscriptions[subscriber] = paths
	}
	if _, exists := paths[watchedPath]; exists {
		return ErrAlreadySubscribed
	}
	paths[watchedPath] = struct{}{}
	return nil
}

// Unsubscribe removes (subscriber, watchedPath), per the flgoff verb.
func (s *Store) Unsubscribe(subscriber, watchedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, ok := s.subscriptions[subscriber]
	if !ok || len(paths) == 0 {
		return ErrNoSubscriptions
	}
	if _, exists := paths[watchedPath]; !exists {
		return ErrNotSubscribed
	}
	delete(paths, watchedPath)
	if len(paths) == 0 {
		delete(s.subscriptions, subscriber)
	}
	return nil
}

// RemoveSubscriber drops every subscription owned by subscriber, on its
// disconnect (§4.6 step 2).
func (s *Store) RemoveSubscriber(subscriber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, subscriber)
}

// Notification is one delivery target for a watched-path event: the
// subscriber to deliver to, and the watched path as originally
// registered (used verbatim in the delivered frame).
type Notification struct {
	Subscriber  string
	WatchedPath string
}

// MatchingSubscriptions returns every (subscriber, watchedPath) whose
// watched path's first dotted segment equals realName, sorted for
// deterministic delivery order.
func (s *Store) MatchingSubscriptions(realName string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for subscriber, paths := range s.subscriptions {
		for p := range paths {
			head, _, _ := strings.Cut(p, ".")
			if head == realName {
				out = append(out, Notification{Subscriber: subscriber, WatchedPath: p})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subscriber != out[j].Subscriber {
			return out[i].Subscriber < out[j].Subscriber
		}
		return out[i].WatchedPath < out[j].WatchedPath
	})
	return out
}
