package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literal values
	TagNum      byte = 0x01
	TagStr      byte = 0x02
	TagAbsent   byte = 0x03 // optional child not present
	TagEllipsis byte = 0x04

	// Variable references (de Bruijn indexed)
	TagLocalRef byte = 0x08
	TagNameRef  byte = 0x09

	// Definitions
	TagModule   byte = 0x10
	TagFunction byte = 0x11
	TagLambda   byte = 0x12
	TagGenExp   byte = 0x13
	TagClass    byte = 0x14

	// Statements
	TagReturn     byte = 0x20
	TagDelete     byte = 0x21
	TagAssign     byte = 0x22
	TagAugAssign  byte = 0x23
	TagPrint      byte = 0x24
	TagFor        byte = 0x25
	TagWhile      byte = 0x26
	TagIf         byte = 0x27
	TagWith       byte = 0x28
	TagRaise      byte = 0x29
	TagTryExcept  byte = 0x2A
	TagTryFinally byte = 0x2B
	TagAssert     byte = 0x2C
	TagImport     byte = 0x2D
	TagImportFrom byte = 0x2E
	TagExec       byte = 0x2F
	TagGlobal     byte = 0x30
	TagNonLocal   byte = 0x31
	TagExprStmt   byte = 0x32
	TagPass       byte = 0x33
	TagBreak      byte = 0x34
	TagContinue   byte = 0x35

	// Expressions
	TagBoolOp    byte = 0x40
	TagBinOp     byte = 0x41
	TagUnaryOp   byte = 0x42
	TagIfExp     byte = 0x43
	TagDict      byte = 0x44
	TagListComp  byte = 0x45
	TagYield     byte = 0x46
	TagCompare   byte = 0x47
	TagCall      byte = 0x48
	TagAttribute byte = 0x49
	TagSubscript byte = 0x4A
	TagList      byte = 0x4B
	TagTuple     byte = 0x4C

	// Slices
	TagSlice    byte = 0x50
	TagExtSlice byte = 0x51
	TagIndex    byte = 0x52

	// Auxiliary
	TagComprehension byte = 0x58
	TagHandler       byte = 0x59
	TagKeyword       byte = 0x5A

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagNum, TagStr, TagAbsent, TagEllipsis,
	TagLocalRef, TagNameRef,
	TagModule, TagFunction, TagLambda, TagGenExp, TagClass,
	TagReturn, TagDelete, TagAssign, TagAugAssign, TagPrint, TagFor,
	TagWhile, TagIf, TagWith, TagRaise, TagTryExcept, TagTryFinally,
	TagAssert, TagImport, TagImportFrom, TagExec, TagGlobal, TagNonLocal,
	TagExprStmt, TagPass, TagBreak, TagContinue,
	TagBoolOp, TagBinOp, TagUnaryOp, TagIfExp, TagDict, TagListComp,
	TagYield, TagCompare, TagCall, TagAttribute, TagSubscript, TagList,
	TagTuple,
	TagSlice, TagExtSlice, TagIndex,
	TagComprehension, TagHandler, TagKeyword,
}
