package models

// ProgramImage describe la imagen de un programa: páginas de código de solo lectura seguidas de páginas de datos.
type ProgramImage struct {
	Name      string
	LinkAddr  uint32
	Entry     uint32
	Code      []byte
	DataPages int
}

// CodePages devuelve la cantidad de páginas que ocupa el código.
func (img ProgramImage) CodePages() int {
	return (len(img.Code) + PageSize - 1) / PageSize
}

// End devuelve la primera dirección libre después de la imagen, alineada a página.
func (img ProgramImage) End() uint32 {
	return img.LinkAddr + uint32(img.CodePages()+img.DataPages)*PageSize
}
