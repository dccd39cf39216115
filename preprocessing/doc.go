// Package preprocessing は特徴量のスケーリングを提供します。
//
// StandardScaler は平均0・分散1への標準化、MinMaxScaler は指定範囲への
// 線形写像を行います。どちらも model.Transformer を満たし、gobで保存できます。
package preprocessing
