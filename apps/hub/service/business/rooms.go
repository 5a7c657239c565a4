package business

import (
	"fmt"
	"hash/maphash"
	"sort"
	"strings"
	"sync"

	"github.com/salavathhari/devcollab/apps/hub/service"
)

// RoomKind partitions the room namespace.
type RoomKind string

const (
	RoomKindUser    RoomKind = "user"
	RoomKindProject RoomKind = "project"
	RoomKindChat    RoomKind = "chat"
	RoomKindPR      RoomKind = "pr"
	RoomKindTask    RoomKind = "task"
	RoomKindReview  RoomKind = "review"
	RoomKindVideo   RoomKind = "video"
)

// RoomKey identifies a broadcast scope. Keys are constructed and parsed
// through this type only; handler code never assembles room name strings.
type RoomKey struct {
	Kind RoomKind
	// ID is the primary scope: user id, project id, pr id or task id
	// depending on Kind.
	ID string
	// RoomType and RoomID further scope chat rooms.
	RoomType string
	RoomID   string
}

// UserRoom is the private room every connection of a user joins implicitly.
func UserRoom(userID string) RoomKey { return RoomKey{Kind: RoomKindUser, ID: userID} }

// ProjectRoom is the project-wide room.
func ProjectRoom(projectID string) RoomKey { return RoomKey{Kind: RoomKindProject, ID: projectID} }

// ChatRoom is a scoped chat thread within a project.
func ChatRoom(projectID, roomType, roomID string) RoomKey {
	return RoomKey{Kind: RoomKindChat, ID: projectID, RoomType: roomType, RoomID: roomID}
}

// PRRoom is the room for a pull request's review collaboration.
func PRRoom(prID string) RoomKey { return RoomKey{Kind: RoomKindPR, ID: prID} }

// TaskRoom scopes task-level typing indicators.
func TaskRoom(taskID string) RoomKey { return RoomKey{Kind: RoomKindTask, ID: taskID} }

// ReviewRoom is a live review session on a pull request.
func ReviewRoom(prID string) RoomKey { return RoomKey{Kind: RoomKindReview, ID: prID} }

// VideoRoom is the per-project video call room.
func VideoRoom(projectID string) RoomKey { return RoomKey{Kind: RoomKindVideo, ID: projectID} }

// String renders the wire form of the key.
func (rk RoomKey) String() string {
	if rk.Kind == RoomKindChat {
		return fmt.Sprintf("%s:%s:%s:%s", rk.Kind, rk.ID, rk.RoomType, rk.RoomID)
	}
	return fmt.Sprintf("%s:%s", rk.Kind, rk.ID)
}

// IsZero reports whether the key is unset.
func (rk RoomKey) IsZero() bool { return rk.Kind == "" }

// ProjectID returns the project a key is directly scoped to. Keys addressed
// by pull request or task id return empty; callers resolve those records to
// find the owning project.
func (rk RoomKey) ProjectID() string {
	switch rk.Kind {
	case RoomKindProject, RoomKindChat, RoomKindVideo:
		return rk.ID
	}
	return ""
}

// ParseRoomKey parses the wire form back into a typed key, rejecting
// malformed or ambiguous names.
func ParseRoomKey(s string) (RoomKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || parts[0] == "" {
		return RoomKey{}, service.ErrInvalidRoomKey
	}

	kind := RoomKind(parts[0])
	switch kind {
	case RoomKindUser, RoomKindProject, RoomKindPR, RoomKindTask, RoomKindReview, RoomKindVideo:
		if len(parts) != 2 || parts[1] == "" {
			return RoomKey{}, service.ErrInvalidRoomKey
		}
		return RoomKey{Kind: kind, ID: parts[1]}, nil
	case RoomKindChat:
		if len(parts) != 4 || parts[1] == "" || parts[2] == "" || parts[3] == "" {
			return RoomKey{}, service.ErrInvalidRoomKey
		}
		return RoomKey{Kind: kind, ID: parts[1], RoomType: parts[2], RoomID: parts[3]}, nil
	default:
		return RoomKey{}, service.ErrInvalidRoomKey
	}
}

const directoryShardCount = 32 // power of 2 for cheap modulo

type directoryShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]string // room key -> connID -> userID
}

// Directory maps room keys to the connections currently joined. It is purely
// derived state, rebuilt from join/leave traffic; membership is
// connection-scoped for delivery and de-duplicated by user for presence.
//
// Sharding keeps unrelated rooms from contending on one lock. Broadcast takes
// the room's shard write lock for the whole fan-out, which is what makes a
// broadcast a single atomic step and gives per-room delivery ordering.
type Directory struct {
	shards   [directoryShardCount]*directoryShard
	hashSeed maphash.Seed
}

// NewDirectory creates an empty room directory.
func NewDirectory() *Directory {
	d := &Directory{hashSeed: maphash.MakeSeed()}
	for i := range directoryShardCount {
		d.shards[i] = &directoryShard{rooms: make(map[string]map[string]string)}
	}
	return d
}

func (d *Directory) getShard(roomKey string) *directoryShard {
	h := maphash.String(d.hashSeed, roomKey)
	return d.shards[h&(directoryShardCount-1)]
}

// Join adds a connection to a room. Joining twice is a no-op.
func (d *Directory) Join(room RoomKey, connID, userID string) {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.Lock()
	members, ok := shard.rooms[key]
	if !ok {
		members = make(map[string]string)
		shard.rooms[key] = members
	}
	members[connID] = userID
	shard.mu.Unlock()
}

// Leave removes a connection from a room. Leaving a room the connection is
// not in is a no-op; empty rooms are dropped.
func (d *Directory) Leave(room RoomKey, connID string) {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.Lock()
	if members, ok := shard.rooms[key]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(shard.rooms, key)
		}
	}
	shard.mu.Unlock()
}

// ConnIDs returns the connection ids currently joined to the room.
func (d *Directory) ConnIDs(room RoomKey) []string {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	members := shard.rooms[key]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// UserIDs returns the distinct user ids joined to the room, sorted. A user
// with two tabs appears once.
func (d *Directory) UserIDs(room RoomKey) []string {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.RLock()
	members := shard.rooms[key]
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, userID := range members {
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}
	shard.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Contains reports whether the connection is currently a member of the room.
func (d *Directory) Contains(room RoomKey, connID string) bool {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	members, ok := shard.rooms[key]
	if !ok {
		return false
	}
	_, ok = members[connID]
	return ok
}

// ContainsUser reports whether any connection of the user remains in the
// room. Used to tell a closed tab apart from the user actually leaving.
func (d *Directory) ContainsUser(room RoomKey, userID string) bool {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	for _, uid := range shard.rooms[key] {
		if uid == userID {
			return true
		}
	}
	return false
}

// Broadcast delivers to every member of the room as one atomic fan-out step.
// The shard write lock is held for the duration, so two broadcasts to the
// same room never interleave; deliver must only enqueue, never block.
func (d *Directory) Broadcast(room RoomKey, deliver func(connID, userID string)) {
	key := room.String()
	shard := d.getShard(key)

	shard.mu.Lock()
	for connID, userID := range shard.rooms[key] {
		deliver(connID, userID)
	}
	shard.mu.Unlock()
}
