/*

Process of compilation

Program Text ->
	parse ->
Abstract Syntax Tree (ast) ->
	front ->
Intermediate Representation (ir) ->
	back ->
Executable Module ->
	invoke ->
Result

Any front.Backend may take the place of the ir builder,
back/llvm lowers straight into LLVM IR and runs it with MCJIT.

*/
package compiler
