// Package connection 实现用户会话的在线状态注册表，支持单用户多终端
package connection

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/life-stream-dev/life-stream-go-message-hub/internal/logger"
)

type Status int

const (
	StatusActive Status = iota
	StatusIdle
	StatusDisconnecting
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusIdle:
		return "IDLE"
	case StatusDisconnecting:
		return "DISCONNECTING"
	}
	return "UNKNOWN"
}

// Session 表示一条客户端逻辑长连接
type Session struct {
	SessionId      string
	UserId         string
	OrgId          string
	DeviceType     string
	ConnectTime    time.Time
	LastActiveTime time.Time
	Status         Status
}

type userEntry struct {
	mu       sync.Mutex
	sessions map[string]*Session // sessionId -> session
}

type orgEntry struct {
	mu    sync.Mutex
	users map[string]int // userId -> 该组织下的会话数
}

// Registry 在线会话注册表，外层用 sync.Map，条目内部各自加锁
type Registry struct {
	sessions sync.Map // sessionId -> userId
	users    sync.Map // userId -> *userEntry
	orgs     sync.Map // orgId -> *orgEntry
	total    atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{}
}

var (
	registryInstance *Registry
	registryOnce     sync.Once
)

// GetRegistry 获取进程级会话注册表实例
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		registryInstance = NewRegistry()
	})
	return registryInstance
}

func (r *Registry) userEntryFor(userId string) *userEntry {
	if value, ok := r.users.Load(userId); ok {
		return value.(*userEntry)
	}
	value, _ := r.users.LoadOrStore(userId, &userEntry{sessions: make(map[string]*Session)})
	return value.(*userEntry)
}

func (r *Registry) orgEntryFor(orgId string) *orgEntry {
	if value, ok := r.orgs.Load(orgId); ok {
		return value.(*orgEntry)
	}
	value, _ := r.orgs.LoadOrStore(orgId, &orgEntry{users: make(map[string]int)})
	return value.(*orgEntry)
}

// Register 登记会话，按 sessionId 幂等。
// 先以 LoadOrStore 原子地认领 sessionId，认领成功才做后续记账，
// 并发的重复注册不会重复累加组织与总连接计数。
func (r *Registry) Register(sessionId string, userId string, orgId string, deviceType string) {
	if _, loaded := r.sessions.LoadOrStore(sessionId, userId); loaded {
		logger.DebugF("Session %s already registered, ignoring", sessionId)
		return
	}

	now := time.Now()
	session := &Session{
		SessionId:      sessionId,
		UserId:         userId,
		OrgId:          orgId,
		DeviceType:     deviceType,
		ConnectTime:    now,
		LastActiveTime: now,
		Status:         StatusActive,
	}

	entry := r.userEntryFor(userId)
	entry.mu.Lock()
	entry.sessions[sessionId] = session
	entry.mu.Unlock()

	if orgId != "" {
		org := r.orgEntryFor(orgId)
		org.mu.Lock()
		org.users[userId]++
		org.mu.Unlock()
	}

	r.total.Add(1)
	logger.InfoF("Session %s registered, user=%s, org=%s, device=%s", sessionId, userId, orgId, deviceType)
}

// Remove 注销会话；该用户的最后一个会话移除后，用户从组织在线集合中消失。
// 未知 sessionId 仅记录日志。
func (r *Registry) Remove(sessionId string) {
	value, ok := r.sessions.LoadAndDelete(sessionId)
	if !ok {
		logger.WarnF("Remove called for unknown session %s", sessionId)
		return
	}
	userId := value.(string)

	entry := r.userEntryFor(userId)
	entry.mu.Lock()
	session, found := entry.sessions[sessionId]
	if found {
		delete(entry.sessions, sessionId)
	}
	entry.mu.Unlock()

	if !found {
		return
	}

	if session.OrgId != "" {
		org := r.orgEntryFor(session.OrgId)
		org.mu.Lock()
		org.users[userId]--
		if org.users[userId] <= 0 {
			delete(org.users, userId)
		}
		org.mu.Unlock()
	}

	r.total.Add(-1)
	logger.InfoF("Session %s removed, user=%s", sessionId, userId)
}

// Touch 刷新会话活跃时间
func (r *Registry) Touch(sessionId string) {
	value, ok := r.sessions.Load(sessionId)
	if !ok {
		return
	}
	entry := r.userEntryFor(value.(string))
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if session, found := entry.sessions[sessionId]; found {
		session.LastActiveTime = time.Now()
	}
}

// SetStatus 更新会话状态（ACTIVE/IDLE/DISCONNECTING）
func (r *Registry) SetStatus(sessionId string, status Status) {
	value, ok := r.sessions.Load(sessionId)
	if !ok {
		logger.DebugF("SetStatus called for unknown session %s", sessionId)
		return
	}
	entry := r.userEntryFor(value.(string))
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if session, found := entry.sessions[sessionId]; found {
		session.Status = status
	}
}

func (r *Registry) IsOnline(userId string) bool {
	value, ok := r.users.Load(userId)
	if !ok {
		return false
	}
	entry := value.(*userEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.sessions) > 0
}

// Sessions 返回用户当前全部会话的副本
func (r *Registry) Sessions(userId string) []Session {
	value, ok := r.users.Load(userId)
	if !ok {
		return nil
	}
	entry := value.(*userEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	result := make([]Session, 0, len(entry.sessions))
	for _, session := range entry.sessions {
		result = append(result, *session)
	}
	return result
}

// OrgOnlineUsers 返回组织当前在线用户ID列表
func (r *Registry) OrgOnlineUsers(orgId string) []string {
	value, ok := r.orgs.Load(orgId)
	if !ok {
		return nil
	}
	org := value.(*orgEntry)
	org.mu.Lock()
	defer org.mu.Unlock()
	result := make([]string, 0, len(org.users))
	for userId := range org.users {
		result = append(result, userId)
	}
	return result
}

func (r *Registry) TotalConnections() int {
	return int(r.total.Load())
}
