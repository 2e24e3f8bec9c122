package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"reflect"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	encodeJsonRaw    = "json-raw"
	encodeJsonPretty = "json"
	encodeNoHeader   = "no-header"
	encodeColumn     = "column"
)

type TableField struct {
	Header    string
	Field     string
	Formatter func(item any) string
}

func showOutput(command *cli.Command, fields []TableField, result any) {
	output := command.String("output")
	switch output {
	case encodeJsonPretty:
		bytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("failed to encode the ctl output: %v", err)
		}
		fmt.Println(string(bytes))

	case encodeJsonRaw:
		bytes, err := json.Marshal(result)
		if err != nil {
			log.Fatalf("failed to encode the ctl output: %v", err)
		}
		fmt.Println(string(bytes))

	case encodeColumn, encodeNoHeader:

		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorders(tablewriter.Border{
			Left:   true,
			Right:  true,
			Top:    false,
			Bottom: false,
		})
		table.SetAutoWrapText(false)

		if output != encodeNoHeader {
			var headers []string
			for _, field := range fields {
				headers = append(headers, field.Header)
			}
			table.SetHeader(headers)
		}

		itemsValue := reflect.ValueOf(result)
		if itemsValue.Kind() == reflect.Pointer && itemsValue.IsNil() {
			table.Render()
			return
		}
		// if the itemsValue is not a slice, lets turn it into one.
		if itemsValue.Type().Kind() != reflect.Slice {
			slice := reflect.MakeSlice(reflect.SliceOf(itemsValue.Type()), 0, 1)
			itemsValue = reflect.Append(slice, itemsValue)
		}
		for i := 0; i < itemsValue.Len(); i++ {
			itemValue := itemsValue.Index(i)
			var line []string
			for _, field := range fields {
				if field.Formatter != nil {
					line = append(line, field.Formatter(itemValue.Interface()))
				} else if field.Field != "" {
					// Deref the items pointers.
					for itemValue.Type().Kind() == reflect.Pointer {
						itemValue = itemValue.Elem()
					}
					fieldValue := itemValue.FieldByName(field.Field)
					if !fieldValue.IsValid() {
						panic(fmt.Sprintf("field %s not found", field.Field))
					}
					line = append(line, fieldFormatter(fieldValue))
				} else {
					panic("TableField.Formatter or TableField.Field must be set")
				}
			}
			table.Append(line)
		}
		table.Render()
		return
	default:
		log.Fatalf("unknown --output option: %s", output)
	}
}

func fieldFormatter(itemValue reflect.Value) string {
	switch itemValue.Type().Kind() {
	case reflect.Invalid:
		return ""
	case reflect.Pointer:
		// deref and try again...
		return fieldFormatter(itemValue.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", itemValue.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", itemValue.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%f", itemValue.Float())
	case reflect.Bool:
		return fmt.Sprintf("%v", itemValue.Bool())
	case reflect.String:
		return itemValue.String()
	default:
		item := itemValue.Interface()
		if item, ok := item.([]byte); ok {
			return string(item)
		}
		bytes, err := json.MarshalIndent(item, "", " ")
		if err != nil {
			panic(err)
		}
		return string(bytes)
	}
}
