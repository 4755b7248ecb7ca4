package rawfit

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	logInfo(fmt.Sprintf("file %s created (id=%d)", fname, f.ID()), "hdf5writer")
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	chunks := []uint{32768}
	plist.SetChunk(chunks)
	plist.SetDeflate(4)

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T) {
	array := []T{data}
	writeArrayToTable(dataset, &array)
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T) {
	length := uint(len(*data))
	if length == 0 {
		return
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		panic(err)
	}

	// Extend the dataset and select the new tail.
	dimsGot, _, _ := dataset.Space().SimpleExtentDims()
	entriesInFile := dimsGot[0]
	newsize := []uint{entriesInFile + length}
	dataset.Resize(newsize)
	filespace := dataset.Space()

	start := []uint{entriesInFile}
	count := []uint{length}
	filespace.SelectHyperslab(start, nil, count, nil)

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		panic(err)
	}

	dataspace.Close()
	filespace.Close()
}
