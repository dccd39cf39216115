// Package pipeline は Spotify 人気度予測パイプラインの各ステージを実装します。
//
// ステージは手動で次の順に実行します。
//
//	Clean → EngineerFeatures → Train(V1) / Train(V2) → Compare → ViewResults
//
// 各ステージは入力ファイルを読み、決まった変換を行い、出力ファイルを書いて
// 人間向けのサマリーを Runner の出力先に表示します。入力ファイルが無い場合は
// 何も書かずに即座に失敗します。構造化ログは pkg/log に出力されます。
package pipeline
