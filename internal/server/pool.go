package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed は停止済みのプールに接続を渡したことを示す
var ErrPoolClosed = errors.New("worker pool closed")

// ConnFunc は1つの接続を最後まで処理する
type ConnFunc func(conn net.Conn)

// Pool は接続を処理するワーカーの上限付きプール
//
// 常駐ワーカーを minWorkers だけ起動しておき、全員が処理中であれば
// maxWorkers まで追加のワーカーを起動する。追加のワーカーは idleTimeout の間
// 仕事が無ければ終了する。キューは持たず、空きが無い間 Submit はブロックする。
type Pool struct {
	handle      ConnFunc
	minWorkers  int
	maxWorkers  int
	idleTimeout time.Duration

	tasks chan net.Conn // バッファ無しの受け渡し
	slots chan struct{} // 起動中ワーカー数の上限
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool

	live atomic.Int32
	busy atomic.Int32
}

// NewPool は新しいプールを作成する
func NewPool(minWorkers, maxWorkers int, idleTimeout time.Duration, handle ConnFunc) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if minWorkers > maxWorkers {
		minWorkers = maxWorkers
	}
	if minWorkers < 0 {
		minWorkers = 0
	}
	return &Pool{
		handle:      handle,
		minWorkers:  minWorkers,
		maxWorkers:  maxWorkers,
		idleTimeout: idleTimeout,
		tasks:       make(chan net.Conn),
		slots:       make(chan struct{}, maxWorkers),
		done:        make(chan struct{}),
	}
}

// Start は常駐ワーカーを起動する
func (p *Pool) Start() {
	for i := 0; i < p.minWorkers; i++ {
		p.slots <- struct{}{}
		if !p.spawn(nil, true) {
			return
		}
	}
}

// Submit は接続をワーカーに渡す
// 待機中のワーカーがいればそれに渡し、いなければ上限までワーカーを追加する。
// どちらもできない場合は空きが出るか ctx が終了するまでブロックする
func (p *Pool) Submit(ctx context.Context, conn net.Conn) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	// 待機中のワーカーを優先する
	select {
	case p.tasks <- conn:
		return nil
	default:
	}

	select {
	case p.tasks <- conn:
		return nil
	case p.slots <- struct{}{}:
		if !p.spawn(conn, false) {
			return ErrPoolClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolClosed
	}
}

// Close は新しい接続の受け付けを止め、処理中の接続が終わるのを待つ
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Live は起動中のワーカー数を返す
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Busy は接続を処理中のワーカー数を返す
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// MinWorkers は常駐ワーカー数を返す
func (p *Pool) MinWorkers() int {
	return p.minWorkers
}

// MaxWorkers は最大ワーカー数を返す
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// spawn は確保済みのスロットでワーカーを起動する。停止済みならスロットを返して false
func (p *Pool) spawn(first net.Conn, core bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		<-p.slots
		return false
	}
	p.wg.Add(1)
	p.live.Add(1)
	go p.worker(first, core)
	return true
}

func (p *Pool) worker(first net.Conn, core bool) {
	defer func() {
		p.live.Add(-1)
		<-p.slots
		p.wg.Done()
	}()

	if first != nil {
		p.run(first)
	}

	for {
		if !core && p.idleTimeout > 0 {
			timer := time.NewTimer(p.idleTimeout)
			select {
			case conn := <-p.tasks:
				timer.Stop()
				p.run(conn)
				continue
			case <-timer.C:
				return
			case <-p.done:
				timer.Stop()
				return
			}
		}

		select {
		case conn := <-p.tasks:
			p.run(conn)
		case <-p.done:
			return
		}
	}
}

func (p *Pool) run(conn net.Conn) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	p.handle(conn)
}
