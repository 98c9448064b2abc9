// Package session は認証状態の保持と配信を提供する。
// Storeは1つのプリンシパルの認証状態を単一のゴルーチンで管理し、
// RegistryがセッションIDからStoreへの対応を管理する。
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
)

// profileFetchTimeout はプロファイル取得1回あたりのタイムアウト。
const profileFetchTimeout = 10 * time.Second

// ProfileFetchMetrics はプロファイル取得失敗の計数を受け取るインターフェース。
// nilの場合、計数はスキップされる。
type ProfileFetchMetrics interface {
	RecordProfileFetchFailure()
}

// Snapshot は認証状態のある時点のコピーを表す。
// Sessionがnilのとき、IdentityとProfileも必ずnilである。
// Loadingはプロファイル取得が進行中であることを示す。
type Snapshot struct {
	Identity *model.Identity
	Profile  *model.Profile
	Session  *model.Session
	Loading  bool
}

// Authenticated は有効なセッションを保持しているかを返す。
func (s Snapshot) Authenticated() bool {
	return s.Session != nil && !s.Session.Expired()
}

// state は管理ゴルーチンだけが触れる内部状態。
type state struct {
	snap      Snapshot
	gen       uint64 // SetSessionごとに増加。古い取得結果の破棄に使う
	subs      map[uint64]chan Snapshot
	nextSubID uint64
}

// Store は1つのプリンシパルの認証状態を管理する。
// すべての状態遷移は単一の管理ゴルーチン上で直列に実行されるため、
// 途中状態が観測されることはない。
type Store struct {
	profileRepo repository.ProfileRepository
	metrics     ProfileFetchMetrics
	cmds        chan func(*state)
	stop        chan struct{}
	stopped     chan struct{}
}

// NewStore はStoreを生成し、管理ゴルーチンを開始する。metricsはnilでもよい。
func NewStore(profileRepo repository.ProfileRepository, metrics ProfileFetchMetrics) *Store {
	s := &Store{
		profileRepo: profileRepo,
		metrics:     metrics,
		cmds:        make(chan func(*state)),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Shutdown は管理ゴルーチンを停止し、全購読チャネルを閉じる。
// 以降の操作はすべて無視される。
func (s *Store) Shutdown() {
	select {
	case <-s.stop:
		// 既に停止済み
	default:
		close(s.stop)
	}
	<-s.stopped
}

// SetSession はセッションとIdentityを設定し、プロファイル取得を開始する。
// sessionがnilの場合は全状態を即座にクリアする(取得は開始されない)。
// プロファイル取得中に別のSetSessionが呼ばれた場合、古い取得結果は破棄される。
func (s *Store) SetSession(session *model.Session, identity *model.Identity) {
	s.do(func(st *state) {
		st.gen++

		if session == nil {
			st.snap = Snapshot{}
			s.publish(st)
			return
		}

		gen := st.gen
		st.snap = Snapshot{
			Identity: identity,
			Session:  session,
			Loading:  true,
		}
		s.publish(st)

		go s.fetchProfile(gen, identity.ID)
	})
}

// Clear は全状態を破棄する。SetSession(nil, nil)と等価。
func (s *Store) Clear() {
	s.SetSession(nil, nil)
}

// SetProfile は取得済みのプロファイルを直接差し替える。
// プロファイル更新APIの応答を即座に反映するために使用する。
func (s *Store) SetProfile(profile *model.Profile) {
	s.do(func(st *state) {
		if st.snap.Session == nil {
			return
		}
		st.snap.Profile = profile
		s.publish(st)
	})
}

// Snapshot は現在の認証状態のコピーを返す。
// 停止済みのStoreに対してはゼロ値を返す。
func (s *Store) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	s.do(func(st *state) {
		reply <- st.snap
	})

	select {
	case snap := <-reply:
		return snap
	case <-s.stopped:
		return Snapshot{}
	}
}

// Subscribe は状態変化の通知チャネルを返す。
// チャネルはバッファ1で、未消費の通知は最新のSnapshotで上書きされる(合流)。
// ctxのキャンセルまたはStoreの停止でチャネルは閉じられる。
// 購読直後に現在のSnapshotが1件配信される。
// 停止済みのStoreに対しては閉じたチャネルを返す。
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	var subID uint64
	registered := s.do(func(st *state) {
		subID = st.nextSubID
		st.nextSubID++
		st.subs[subID] = ch
		ch <- st.snap
	})
	if !registered {
		close(ch)
		return ch
	}

	go func() {
		select {
		case <-ctx.Done():
			s.do(func(st *state) {
				if _, ok := st.subs[subID]; ok {
					delete(st.subs, subID)
					close(ch)
				}
			})
		case <-s.stopped:
			// runが全購読チャネルを閉じる
		}
	}()

	return ch
}

// run は管理ゴルーチンの本体。コマンドを直列に実行する。
func (s *Store) run() {
	st := &state{subs: make(map[uint64]chan Snapshot)}

	for {
		select {
		case cmd := <-s.cmds:
			cmd(st)
		case <-s.stop:
			for id, ch := range st.subs {
				delete(st.subs, id)
				close(ch)
			}
			close(s.stopped)
			return
		}
	}
}

// do はコマンドを管理ゴルーチンに送り、受理されたかを返す。
// 停止済みの場合は何もせずfalseを返す。
func (s *Store) do(cmd func(*state)) bool {
	select {
	case s.cmds <- cmd:
		return true
	case <-s.stop:
		return false
	}
}

// publish は全購読者に現在のSnapshotを配信する。
// 未消費の通知は破棄し、常に最新の状態だけを届ける。
func (s *Store) publish(st *state) {
	for _, ch := range st.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st.snap:
		default:
		}
	}
}

// fetchProfile はプロファイルを取得し、結果を管理ゴルーチンへ届ける。
// 取得開始時点のgenと現在のgenが一致しない場合、結果は破棄される。
func (s *Store) fetchProfile(gen uint64, identityID string) {
	ctx, cancel := context.WithTimeout(context.Background(), profileFetchTimeout)
	defer cancel()

	profile, err := s.profileRepo.FetchByID(ctx, identityID)

	s.do(func(st *state) {
		if st.gen != gen {
			// この取得の開始後にセッションが差し替えられている
			return
		}

		st.snap.Loading = false

		switch {
		case err == nil:
			st.snap.Profile = profile
		case errors.Is(err, model.ErrProfileNotFound):
			// トリガによる行作成が遅れている。Identityとセッションは維持する。
			slog.Info("profile row not yet present",
				slog.String("identity_id", identityID),
			)
		default:
			if s.metrics != nil {
				s.metrics.RecordProfileFetchFailure()
			}
			slog.Error("profile fetch failed",
				slog.String("identity_id", identityID),
				slog.String("error", err.Error()),
			)
		}

		s.publish(st)
	})
}
