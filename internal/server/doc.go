// Package server は、TCP接続の受け付けからレスポンス送信までを管理します。
//
// このパッケージは、待ち受け、ワーカープールへの振り分け、
// 1接続ごとのリクエスト処理（解析・ルーティング・静的ファイル配信）を担当します。
//
// 責務:
//   - TCPリスナーの起動とグレースフルシャットダウン
//   - 上限付きワーカープールによる接続の並行処理
//   - ルートテーブルに一致したハンドラーの呼び出し
//   - 一致しない場合の静的ファイル配信と 404 応答
//   - 解析失敗やハンドラーの失敗を 500 応答に変換
//
// 仕様:
//   - 1接続につき1リクエストを処理し、応答後に必ず接続を閉じる
//   - /favicon.ico はルーティングより前に 204 を返す
//   - プールに空きが無い間は Accept を進めない（キューを持たない）
//   - 1つの接続の失敗は他の接続やリスナーに影響しない
//   - 読み込みタイムアウトは設定した場合のみ有効
package server
