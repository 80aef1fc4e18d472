// Package wire は HTTP/1.1 のサブセットをバイト列と相互変換します。
//
// 責務:
//   - リクエストライン・ヘッダー・ボディの解析 (ParseRequest)
//   - ステータス・ヘッダー・ボディの蓄積と一括送信 (Response)
//
// 仕様:
//   - ヘッダー名は解析時に小文字化し、重複時は後勝ち
//   - クエリパラメータはUTF-8でパーセントデコードし、重複時は後勝ち
//   - Content-Length に満たないボディはエラーにせず、読めた分だけを保持する
//   - chunked 転送やキープアライブには対応しない
//   - レスポンスは必ず Connection: close を付けて一度だけ送信する
package wire
