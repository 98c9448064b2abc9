package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
)

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	CleanupInterval time.Duration // 未使用Storeの掃除間隔
}

// DefaultRegistryConfig はデフォルトのRegistry設定を返す。
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		CleanupInterval: 5 * time.Minute,
	}
}

// storeEntry はStoreと最終アクセス時刻を保持する。
type storeEntry struct {
	store      *Store
	identityID string
	lastAccess time.Time
}

// Registry はセッションIDからStoreへの対応を管理する。
// プロセス再起動後も永続化されたセッション行からStoreを復元できる。
// 一定期間アクセスのないStoreはバックグラウンドで停止・破棄される
// (セッション行は残るため、次のアクセスで再び復元される)。
type Registry struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	metrics     ProfileFetchMetrics
	config      RegistryConfig

	mu     sync.Mutex
	stores map[string]*storeEntry

	stopCh chan struct{}
}

// NewRegistry はRegistryを生成し、バックグラウンドの掃除を開始する。
// metricsはnilでもよく、生成される各Storeへ引き継がれる。
func NewRegistry(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	metrics ProfileFetchMetrics,
	config RegistryConfig,
) *Registry {
	r := &Registry{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
		stores:      make(map[string]*storeEntry),
		stopCh:      make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// Stop は掃除ゴルーチンと全Storeを停止する。
func (r *Registry) Stop() {
	close(r.stopCh)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.stores {
		entry.store.Shutdown()
		delete(r.stores, id)
	}
}

// Attach はセッションに対応するStoreを登録し、初期状態を設定する。
// ログイン直後にhandler側から呼ばれる。
func (r *Registry) Attach(session *model.Session, identity *model.Identity) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.stores[session.ID]; ok {
		entry.lastAccess = time.Now()
		entry.store.SetSession(session, identity)
		return entry.store
	}

	store := NewStore(r.profileRepo, r.metrics)
	store.SetSession(session, identity)
	r.stores[session.ID] = &storeEntry{
		store:      store,
		identityID: identity.ID,
		lastAccess: time.Now(),
	}

	return store
}

// Lookup はセッションIDに対応するStoreを返す。
// メモリ上に存在しない場合、永続化されたセッション行から復元を試みる。
// セッションが存在しないか期限切れの場合は(nil, nil)を返す。
func (r *Registry) Lookup(ctx context.Context, sessionID string) (*Store, error) {
	r.mu.Lock()
	if entry, ok := r.stores[sessionID]; ok {
		entry.lastAccess = time.Now()
		store := entry.store
		r.mu.Unlock()
		return store, nil
	}
	r.mu.Unlock()

	// 永続化されたセッション行から復元する
	session, err := r.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	identity := &model.Identity{ID: session.IdentityID}

	r.mu.Lock()
	defer r.mu.Unlock()

	// 競合した復元のダブルチェック
	if entry, ok := r.stores[sessionID]; ok {
		entry.lastAccess = time.Now()
		return entry.store, nil
	}

	store := NewStore(r.profileRepo, r.metrics)
	store.SetSession(session, identity)
	r.stores[sessionID] = &storeEntry{
		store:      store,
		identityID: session.IdentityID,
		lastAccess: time.Now(),
	}

	return store, nil
}

// Detach はセッションのStoreを停止して取り除く。ログアウト時に呼ばれる。
func (r *Registry) Detach(sessionID string) {
	r.mu.Lock()
	entry, ok := r.stores[sessionID]
	if ok {
		delete(r.stores, sessionID)
	}
	r.mu.Unlock()

	if ok {
		entry.store.Clear()
		entry.store.Shutdown()
	}
}

// DetachByIdentity はIdentityに属する全Storeを停止して取り除く。
// 退会処理で全デバイスのセッションを無効化する際に使用する。
func (r *Registry) DetachByIdentity(identityID string) {
	r.mu.Lock()
	var removed []*storeEntry
	for id, entry := range r.stores {
		if entry.identityID == identityID {
			removed = append(removed, entry)
			delete(r.stores, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range removed {
		entry.store.Clear()
		entry.store.Shutdown()
	}
}

// Count は現在メモリ上に存在するStoreの数を返す。テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// cleanupLoop はバックグラウンドで未使用Storeを定期的に破棄する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたStoreを破棄する。
func (r *Registry) cleanup() {
	ttl := r.config.CleanupInterval * 2
	now := time.Now()

	r.mu.Lock()
	var expired []*storeEntry
	for id, entry := range r.stores {
		if now.Sub(entry.lastAccess) > ttl {
			expired = append(expired, entry)
			delete(r.stores, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		entry.store.Shutdown()
	}
}
