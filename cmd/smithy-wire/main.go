package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
	"github.com/smithy-lang/smithy-rs-sub009/gen"
)

const toolVersion = "1.0.0"

func main() {
	pVersion := flag.Bool("v", false, "Show tool version and exit")
	pConf := flag.String("c", "", "YAML generation config file")
	pProtocol := flag.String("p", "", "The wire protocol to encode with (json, xml, awsQuery, ec2Query)")
	pOp := flag.String("op", "", "The operation to encode input for (defaults to the model's first operation)")
	pInput := flag.String("i", "", "JSON file holding the input value to encode")
	pTags := flag.String("t", "", "Comma-separated tags to filter shapes by")
	pRedact := flag.Bool("redact", false, "Redact sensitive members in the output")
	pList := flag.Bool("l", false, "List the model's operations and exit")
	flag.Parse()
	if *pVersion {
		fmt.Printf("smithy-wire %s\n", toolVersion)
		os.Exit(0)
	}
	files := flag.Args()
	if len(files) == 0 {
		fmt.Println("usage: smithy-wire [-v] [-c conf] [-p protocol] [-op operation] [-i input.json] file ...")
		flag.PrintDefaults()
		os.Exit(1)
	}
	var tags []string
	if *pTags != "" {
		tags = strings.Split(*pTags, ",")
	}
	model, err := smithy.AssembleModel(files, tags)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	if *pList {
		for _, id := range model.OperationIDs() {
			fmt.Println(id)
		}
		os.Exit(0)
	}
	conf := gen.DefaultConfig()
	if *pConf != "" {
		conf, err = gen.LoadConfig(*pConf)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
	if *pProtocol != "" {
		conf.Protocol = *pProtocol
	}
	if *pRedact {
		conf.RedactSensitive = true
	}
	session, err := gen.NewSession(model, conf)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	generator, err := session.Generator(conf.Protocol)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	opID := *pOp
	if opID == "" {
		ops := model.OperationIDs()
		if len(ops) == 0 {
			fmt.Println("model has no operations")
			os.Exit(2)
		}
		opID = ops[0]
	}
	serializer, err := generator.OperationSerializer(opID)
	if err != nil {
		fmt.Printf("*** %v\n", err)
		os.Exit(4)
	}
	input := data.NewObject()
	if *pInput != "" {
		raw, err := os.ReadFile(*pInput)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		if err := json.Unmarshal(raw, input); err != nil {
			fmt.Printf("*** cannot parse %s: %v\n", *pInput, err)
			os.Exit(2)
		}
	}
	if serializer == nil {
		fmt.Printf("%s has no body-bound input on %s\n", opID, generator.Protocol())
		os.Exit(0)
	}
	body, err := serializer(input, conf.Settings())
	if err != nil {
		fmt.Printf("*** %v\n", err)
		os.Exit(4)
	}
	fmt.Println(string(body))
}
